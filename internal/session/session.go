package session

import (
	"github.com/google/uuid"

	"kioskd/internal/logger"
	"kioskd/internal/policy"
	"kioskd/pkg/model"
)

// Session 唯一的终端窗口会话，进程生命周期内只存在一个。
// 所有字段仅在控制循环 goroutine 中访问，不加锁。
type Session struct {
	id        model.SessionID
	targetURL string
	current   string
	online    bool
	overlay   model.OverlayState
	log       logger.Logger
}

// New 创建会话，targetURL 为用户配置的主页
func New(targetURL string, l logger.Logger) *Session {
	if l == nil {
		l = logger.NewNop()
	}
	s := &Session{
		id:        model.SessionID(uuid.NewString()),
		targetURL: targetURL,
		current:   targetURL,
		online:    true,
		overlay:   model.OverlayLoading,
		log:       l,
	}
	s.log.Info("创建终端会话", "sessionID", string(s.id), "target", targetURL)
	return s
}

func (s *Session) ID() model.SessionID         { return s.id }
func (s *Session) TargetURL() string           { return s.targetURL }
func (s *Session) CurrentURL() string          { return s.current }
func (s *Session) Online() bool                { return s.online }
func (s *Session) Overlay() model.OverlayState { return s.overlay }

// SetTargetURL 更新主页地址（设置面板写入 homeUrl 时调用）
func (s *Session) SetTargetURL(raw string) {
	s.targetURL = raw
}

// Commit 记录一次成功提交；仅 http/https 地址会更新当前地址，
// 本地加载页与错误页永远不会成为「回家」或历史导航的目标
func (s *Session) Commit(raw string) bool {
	if !policy.IsWebURL(raw) {
		s.log.Debug("忽略本地页面提交", "url", raw)
		return false
	}
	s.current = raw
	s.log.Debug("更新当前地址", "url", raw)
	return true
}

// SetOnline 记录网络连通状态
func (s *Session) SetOnline(online bool) {
	if s.online == online {
		return
	}
	s.online = online
	s.log.Info("网络状态变化", "online", online)
}

// SetOverlay 记录当前展示的状态覆盖层
func (s *Session) SetOverlay(o model.OverlayState) {
	s.overlay = o
}
