package policy

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"kioskd/pkg/model"
)

type Action int

const (
	ActionAllow Action = iota
	ActionRewrite
	ActionDenyWindow
)

type Decision struct {
	Action Action
	URL    string
}

// Engine 根据主页地址与内网前缀对导航目标做出决策。
// 网络拦截消费者并发调用 Rewrite，主页更新加读写锁。
type Engine struct {
	mu       sync.RWMutex
	home     *url.URL
	prefixes []string
}

func New(homeURL string, prefixes []string) (*Engine, error) {
	u, err := url.Parse(homeURL)
	if err != nil {
		return nil, fmt.Errorf("parse home url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("home url must be http or https: %s", homeURL)
	}
	if len(prefixes) == 0 {
		prefixes = []string{"10.21."}
	}
	return &Engine{home: u, prefixes: prefixes}, nil
}

func (e *Engine) Home() *url.URL {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.home
}

// SetHome 更新主页地址，非 http/https 地址被拒绝
func (e *Engine) SetHome(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse home url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("home url must be http or https: %s", raw)
	}
	e.mu.Lock()
	e.home = u
	e.mu.Unlock()
	return nil
}

// Decide 对一次导航事件做出决策：放行、原窗口改写加载、或拒绝新窗口
func (e *Engine) Decide(kind model.NavKind, raw string) Decision {
	rewritten, changed := e.Rewrite(raw)
	if kind == model.NavOpenNewWindow {
		return Decision{Action: ActionDenyWindow, URL: rewritten}
	}
	if changed {
		return Decision{Action: ActionRewrite, URL: rewritten}
	}
	return Decision{Action: ActionAllow, URL: raw}
}

// Rewrite 将内网容器地址改写为主页主机，保留 scheme、端口、路径、查询与片段。
// 无法解析的地址原样放行。
func (e *Engine) Rewrite(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw, false
	}
	if !e.internalHost(u.Hostname()) {
		return raw, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	host := e.home.Hostname()
	// 端口：目标自带的优先，否则沿用主页端口
	if port := u.Port(); port != "" {
		host = host + ":" + port
	} else if port := e.home.Port(); port != "" {
		host = host + ":" + port
	}
	if host == u.Host {
		return raw, false
	}
	u.Host = host
	return u.String(), true
}

func (e *Engine) internalHost(host string) bool {
	if host == "localhost" || host == "127.0.0.1" {
		return true
	}
	for _, p := range e.prefixes {
		if strings.HasPrefix(host, p) {
			return true
		}
	}
	return false
}

// IsWebURL 仅 http/https 提交会更新当前地址，本地页面不计入历史
func IsWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
