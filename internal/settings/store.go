package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"kioskd/internal/logger"
	"kioskd/pkg/model"
)

var knownKeys = []string{"cursorTheme", "cursorSize", "dockPosition", "dockSize", "homeUrl"}

// Store 持久化配置存储。以原始 JSON 文档为内存形态，未知键原样保留；
// 每次写入立即落盘，落盘失败仅记录日志，配置继续存活于内存。
type Store struct {
	mu   sync.Mutex
	path string
	doc  []byte
	log  logger.Logger

	watcher  *fsnotify.Watcher
	onChange func(model.Settings)
}

// DefaultPaths 返回系统级主路径与用户级回退路径
func DefaultPaths() (string, string) {
	primary := filepath.Join("/etc", "kioskd", "settings.json")
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return primary, filepath.Join(dir, "kioskd", "settings.json")
}

// Open 打开配置存储。主路径不可写时回退到用户路径；
// 两处都不可写时配置仅存活于内存。
func Open(primary, fallback string, l logger.Logger) *Store {
	if l == nil {
		l = logger.NewNop()
	}
	s := &Store{log: l}
	s.path = pickWritable(primary, fallback, l)

	doc := defaultDoc()
	if s.path != "" {
		if data, err := os.ReadFile(s.path); err == nil && len(data) > 0 && gjson.ValidBytes(data) {
			doc = mergeDefaults(data)
		}
	}
	s.doc = doc
	s.persist()
	s.log.Info("配置存储就绪", "path", s.path)
	return s
}

// pickWritable 依次尝试主路径与回退路径，返回第一个可写的
func pickWritable(primary, fallback string, l logger.Logger) string {
	for _, p := range []string{primary, fallback} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			l.Warn("配置目录不可用", "path", p, "error", err.Error())
			continue
		}
		f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			l.Warn("配置路径不可写", "path", p, "error", err.Error())
			continue
		}
		f.Close()
		return p
	}
	l.Warn("无可写配置路径，配置仅存活于内存")
	return ""
}

func defaultDoc() []byte {
	b, _ := json.Marshal(model.DefaultSettings())
	return b
}

// mergeDefaults 将持久化文档叠加在默认值之上：已知键缺失或取值
// 非法时回落默认值，未知键原样保留
func mergeDefaults(data []byte) []byte {
	doc := data
	defaults := gjson.ParseBytes(defaultDoc())
	for _, key := range knownKeys {
		v := gjson.GetBytes(doc, key)
		if v.Exists() && v.Type == gjson.String && model.ValidValue(key, v.String()) {
			continue
		}
		doc, _ = sjson.SetBytes(doc, key, defaults.Get(key).String())
	}
	return doc
}

// All 返回完整配置记录
func (s *Store) All() model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decode()
}

func (s *Store) decode() model.Settings {
	out := model.DefaultSettings()
	r := gjson.ParseBytes(s.doc)
	if v := r.Get("cursorTheme"); v.Exists() {
		out.CursorTheme = v.String()
	}
	if v := r.Get("cursorSize"); v.Exists() {
		out.CursorSize = v.String()
	}
	if v := r.Get("dockPosition"); v.Exists() {
		out.DockPosition = v.String()
	}
	if v := r.Get("dockSize"); v.Exists() {
		out.DockSize = v.String()
	}
	if v := r.Get("homeUrl"); v.Exists() {
		out.HomeURL = v.String()
	}
	return out
}

// Get 读取单个配置键，未知键返回 false
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := gjson.GetBytes(s.doc, key)
	if !v.Exists() {
		return "", false
	}
	return v.String(), true
}

// Set 写入单个配置键并立即持久化，返回写入是否成功。
// 非法取值直接拒绝，不触碰文档。
func (s *Store) Set(key, value string) bool {
	if !model.ValidValue(key, value) {
		s.log.Warn("拒绝非法配置取值", "key", key, "value", value)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := sjson.SetBytes(s.doc, key, value)
	if err != nil {
		s.log.Err(err, "配置写入失败", "key", key)
		return false
	}
	s.doc = doc
	return s.persist()
}

// SetMany 批量写入，任一键非法则整体拒绝
func (s *Store) SetMany(values map[string]string) bool {
	for k, v := range values {
		if !model.ValidValue(k, v) {
			s.log.Warn("拒绝非法配置取值", "key", k, "value", v)
			return false
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc
	var err error
	for k, v := range values {
		doc, err = sjson.SetBytes(doc, k, v)
		if err != nil {
			s.log.Err(err, "配置写入失败", "key", k)
			return false
		}
	}
	s.doc = doc
	return s.persist()
}

// Reset 恢复默认配置并持久化
func (s *Store) Reset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = defaultDoc()
	return s.persist()
}

// Path 返回实际使用的配置文件路径，纯内存模式返回空串
func (s *Store) Path() string { return s.path }

// persist 立即落盘；失败记录日志但不致命，调用方持锁
func (s *Store) persist() bool {
	if s.path == "" {
		return false
	}
	if err := os.WriteFile(s.path, s.doc, 0o644); err != nil {
		s.log.Err(err, "配置落盘失败", "path", s.path)
		return false
	}
	return true
}

// Watch 监听配置文件的外部修改并热加载，变更后回调新配置
func (s *Store) Watch(onChange func(model.Settings)) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return err
	}
	s.watcher = w
	s.onChange = onChange
	go s.watchLoop()
	return nil
}

func (s *Store) watchLoop() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != s.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s.reload()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Err(err, "配置文件监听错误")
		}
	}
}

func (s *Store) reload() {
	data, err := os.ReadFile(s.path)
	if err != nil || len(data) == 0 || !gjson.ValidBytes(data) {
		return
	}
	s.mu.Lock()
	if string(data) == string(s.doc) {
		s.mu.Unlock()
		return
	}
	s.doc = mergeDefaults(data)
	cur := s.decode()
	s.mu.Unlock()
	s.log.Info("配置文件外部变更，已热加载", "path", s.path)
	if s.onChange != nil {
		s.onChange(cur)
	}
}

// Close 停止文件监听
func (s *Store) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}
