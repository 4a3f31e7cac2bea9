package storage

import (
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"kioskd/internal/logger"
	"kioskd/pkg/model"
)

// Entry 运行事件日志表
type Entry struct {
	ID        string `gorm:"primaryKey;size:36"`
	Session   string `gorm:"index;size:36"`
	Type      string `gorm:"index;size:32"`
	URL       string
	Detail    string
	CreatedAt time.Time `gorm:"index"`
}

// Journal 事件日志库。控制器产生的运行事件（导航、改写、故障、恢复）
// 落入 sqlite，供服务菜单展示最近记录。
type Journal struct {
	db  *gorm.DB
	log logger.Logger
}

// OpenJournal 打开（必要时建表）事件日志库
func OpenJournal(dsn, prefix string, l logger.Logger) (*Journal, error) {
	if l == nil {
		l = logger.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         NewGormLogger(l),
		NamingStrategy: schema.NamingStrategy{TablePrefix: prefix},
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Journal{db: db, log: l}, nil
}

// Record 写入一条事件记录，失败仅记录日志
func (j *Journal) Record(ev model.Event) {
	e := Entry{
		ID:        ev.ID,
		Session:   string(ev.Session),
		Type:      ev.Type,
		URL:       ev.URL,
		Detail:    ev.Detail,
		CreatedAt: time.UnixMilli(ev.Timestamp),
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if ev.Timestamp == 0 {
		e.CreatedAt = time.Now()
	}
	if err := j.db.Create(&e).Error; err != nil {
		j.log.Err(err, "事件入库失败", "type", ev.Type)
	}
}

// Recent 返回最近 n 条事件，按时间倒序
func (j *Journal) Recent(n int) []model.Event {
	if n <= 0 {
		n = 10
	}
	var rows []Entry
	if err := j.db.Order("created_at desc").Limit(n).Find(&rows).Error; err != nil {
		j.log.Err(err, "查询事件失败")
		return nil
	}
	out := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Event{
			ID:        r.ID,
			Session:   model.SessionID(r.Session),
			Type:      r.Type,
			URL:       r.URL,
			Detail:    r.Detail,
			Timestamp: r.CreatedAt.UnixMilli(),
		})
	}
	return out
}

// Consume 持续消费事件通道直到通道关闭
func (j *Journal) Consume(ch <-chan model.Event) {
	for ev := range ch {
		j.Record(ev)
	}
}

// Close 关闭底层连接
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
