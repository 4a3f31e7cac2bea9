package kiosk

import (
	"context"
	"sync"
	"time"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/protocol/browser"
	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/mafredri/cdp/protocol/network"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/mafredri/cdp/protocol/target"

	"kioskd/internal/logger"
	"kioskd/internal/policy"
	"kioskd/pkg/model"
)

// startConsumers 为每条事件流启动一个消费 goroutine，统一投递到控制循环。
// 流中断即退出；连接断开由 Run 的 ctx 终止整个控制器。
func (m *Manager) startConsumers() {
	go m.consumeFrameNavigated()
	go m.consumeNavigatedWithinDocument()
	go m.consumeFrameRequestedNavigation()
	go m.consumeWindowOpen()
	go m.consumeTargetCreated()
	go m.consumeTargetDestroyed()
	go m.consumeRequestWillBeSent()
	go m.consumeLoadingFailed()
	go m.consumeTargetCrashed()
	go m.consumeBindingCalled()
	go m.consumeRequestPaused()
}

func (m *Manager) consumeFrameNavigated() {
	c, err := m.client.Page.FrameNavigated(m.ctx)
	if err != nil {
		m.log.Err(err, "订阅 frameNavigated 失败")
		return
	}
	defer c.Close()
	for {
		ev, err := c.Recv()
		if err != nil {
			return
		}
		if m.mainFrame != "" && ev.Frame.ID != m.mainFrame {
			continue
		}
		m.post(ctrlEvent{kind: evCommitted, url: ev.Frame.URL})
	}
}

func (m *Manager) consumeNavigatedWithinDocument() {
	c, err := m.client.Page.NavigatedWithinDocument(m.ctx)
	if err != nil {
		m.log.Err(err, "订阅 navigatedWithinDocument 失败")
		return
	}
	defer c.Close()
	for {
		ev, err := c.Recv()
		if err != nil {
			return
		}
		if m.mainFrame != "" && ev.FrameID != m.mainFrame {
			continue
		}
		m.post(ctrlEvent{kind: evCommittedInPage, url: ev.URL})
	}
}

func (m *Manager) consumeFrameRequestedNavigation() {
	c, err := m.client.Page.FrameRequestedNavigation(m.ctx)
	if err != nil {
		m.log.Err(err, "订阅 frameRequestedNavigation 失败")
		return
	}
	defer c.Close()
	for {
		ev, err := c.Recv()
		if err != nil {
			return
		}
		if m.mainFrame != "" && ev.FrameID != m.mainFrame {
			continue
		}
		m.post(ctrlEvent{kind: evWillNavigate, url: ev.URL})
	}
}

func (m *Manager) consumeWindowOpen() {
	c, err := m.client.Page.WindowOpen(m.ctx)
	if err != nil {
		m.log.Err(err, "订阅 windowOpen 失败")
		return
	}
	defer c.Close()
	for {
		ev, err := c.Recv()
		if err != nil {
			return
		}
		m.post(ctrlEvent{kind: evWindowOpen, url: ev.URL})
	}
}

// consumeTargetCreated 关闭任何不是主窗口的页面目标，
// 维持单窗口不变式（中键点击等绕过 windowOpen 的路径）
func (m *Manager) consumeTargetCreated() {
	c, err := m.client.Target.TargetCreated(m.ctx)
	if err != nil {
		m.log.Err(err, "订阅 targetCreated 失败")
		return
	}
	defer c.Close()
	for {
		ev, err := c.Recv()
		if err != nil {
			return
		}
		info := ev.TargetInfo
		if info.Type != "page" || info.TargetID == m.targetID {
			continue
		}
		m.log.Info("关闭多余页面目标", "target", string(info.TargetID), "url", info.URL)
		if _, err := m.client.Target.CloseTarget(m.ctx, target.NewCloseTargetArgs(info.TargetID)); err != nil {
			m.log.Err(err, "关闭目标失败", "target", string(info.TargetID))
		}
	}
}

// consumeTargetDestroyed 主窗口目标被摧毁时终止控制器，
// 由服务管理器重启整个守护进程恢复终端
func (m *Manager) consumeTargetDestroyed() {
	c, err := m.client.Target.TargetDestroyed(m.ctx)
	if err != nil {
		m.log.Err(err, "订阅 targetDestroyed 失败")
		return
	}
	defer c.Close()
	for {
		ev, err := c.Recv()
		if err != nil {
			return
		}
		if ev.TargetID != m.targetID {
			continue
		}
		m.log.Error("主窗口目标被摧毁，控制器退出")
		m.cancel()
		return
	}
}

// docRequests 记录主框架在途文档请求的 RequestID。主框架同一时刻
// 至多一个文档请求在途，重定向各跳共用同一 RequestID。
type docRequests struct {
	mu     sync.Mutex
	cur    network.RequestID
	marked bool
}

func (d *docRequests) mark(id network.RequestID) {
	d.mu.Lock()
	d.cur = id
	d.marked = true
	d.mu.Unlock()
}

func (d *docRequests) take(id network.RequestID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.marked || d.cur != id {
		return false
	}
	d.marked = false
	return true
}

// consumeRequestWillBeSent 标记主框架的文档请求，
// 供 loadingFailed 区分主文档与 iframe 子文档的失败
func (m *Manager) consumeRequestWillBeSent() {
	c, err := m.client.Network.RequestWillBeSent(m.ctx)
	if err != nil {
		m.log.Err(err, "订阅 requestWillBeSent 失败")
		return
	}
	defer c.Close()
	for {
		ev, err := c.Recv()
		if err != nil {
			return
		}
		if ev.Type != network.ResourceTypeDocument {
			continue
		}
		if ev.FrameID == nil || *ev.FrameID != m.mainFrame {
			continue
		}
		m.mainDocs.mark(ev.RequestID)
	}
}

// consumeLoadingFailed 仅主框架文档的加载失败驱动故障状态机，
// iframe 子文档失败不影响整页
func (m *Manager) consumeLoadingFailed() {
	c, err := m.client.Network.LoadingFailed(m.ctx)
	if err != nil {
		m.log.Err(err, "订阅 loadingFailed 失败")
		return
	}
	defer c.Close()
	for {
		ev, err := c.Recv()
		if err != nil {
			return
		}
		if ev.Type != network.ResourceTypeDocument {
			continue
		}
		if !m.mainDocs.take(ev.RequestID) {
			continue
		}
		if ev.Canceled != nil && *ev.Canceled {
			continue
		}
		m.post(ctrlEvent{kind: evLoadFailed, detail: ev.ErrorText})
	}
}

func (m *Manager) consumeTargetCrashed() {
	c, err := m.client.Inspector.TargetCrashed(m.ctx)
	if err != nil {
		m.log.Err(err, "订阅 targetCrashed 失败")
		return
	}
	defer c.Close()
	for {
		if _, err := c.Recv(); err != nil {
			return
		}
		m.post(ctrlEvent{kind: evCrashed})
	}
}

func (m *Manager) consumeBindingCalled() {
	c, err := m.client.Runtime.BindingCalled(m.ctx)
	if err != nil {
		m.log.Err(err, "订阅 bindingCalled 失败")
		return
	}
	defer c.Close()
	for {
		ev, err := c.Recv()
		if err != nil {
			return
		}
		if ev.Name != bindingName {
			continue
		}
		m.post(ctrlEvent{kind: evBridgeCall, detail: ev.Payload})
	}
}

// consumeRequestPaused 顶层文档请求的提交前改写。重定向的每一跳都会
// 重新进入拦截，改写后的地址在提交前生效。决策只读策略引擎，
// 不经过控制循环，避免阻塞网络栈。
func (m *Manager) consumeRequestPaused() {
	c, err := m.client.Fetch.RequestPaused(m.ctx)
	if err != nil {
		m.log.Err(err, "订阅 requestPaused 失败")
		return
	}
	defer c.Close()
	for {
		ev, err := c.Recv()
		if err != nil {
			return
		}
		go m.handlePaused(ev)
	}
}

func (m *Manager) handlePaused(ev *fetch.RequestPausedReply) {
	ctx, cancel := context.WithTimeout(m.ctx, 3*time.Second)
	defer cancel()

	rewritten, changed := m.engine.Rewrite(ev.Request.URL)
	if !changed {
		if err := m.client.Fetch.ContinueRequest(ctx, &fetch.ContinueRequestArgs{RequestID: ev.RequestID}); err != nil {
			m.log.Debug("continue_request 失败", "error", err.Error())
		}
		return
	}
	m.log.Info("提交前改写文档请求", "from", ev.Request.URL, "to", rewritten)
	args := &fetch.ContinueRequestArgs{RequestID: ev.RequestID, URL: &rewritten}
	if err := m.client.Fetch.ContinueRequest(ctx, args); err != nil {
		m.log.Err(err, "改写请求失败", "url", rewritten)
	}
	m.emit(model.EventRewritten, ev.Request.URL, rewritten)
}

// heartbeat 周期性评估页面以探测渲染进程失去响应与焦点丢失
func (m *Manager) heartbeat() {
	interval := time.Duration(m.cfg.Health.HeartbeatIntervalMS) * time.Millisecond
	timeout := time.Duration(m.cfg.Health.HeartbeatTimeoutMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(m.ctx, timeout)
			reply, err := m.client.Runtime.Evaluate(ctx,
				runtime.NewEvaluateArgs("document.hasFocus()").SetReturnByValue(true))
			cancel()
			if err != nil {
				if m.ctx.Err() != nil {
					return
				}
				m.post(ctrlEvent{kind: evHeartbeatMiss})
				continue
			}
			focused := string(reply.Result.Value) == "true"
			m.post(ctrlEvent{kind: evHeartbeatOK, flag: focused})
		}
	}
}

// cdpEvaluator 注入器的窄适配：在页面上下文执行脚本
type cdpEvaluator struct {
	client *cdp.Client
}

func (e *cdpEvaluator) Eval(ctx context.Context, expression string) error {
	reply, err := e.client.Runtime.Evaluate(ctx, runtime.NewEvaluateArgs(expression))
	if err != nil {
		return err
	}
	if reply.ExceptionDetails != nil {
		return reply.ExceptionDetails
	}
	return nil
}

// fullscreenWindow 将目标窗口置为全屏
func fullscreenWindow(ctx context.Context, client *cdp.Client, id target.ID, l logger.Logger) {
	args := browser.NewGetWindowForTargetArgs().SetTargetID(id)
	win, err := client.Browser.GetWindowForTarget(ctx, args)
	if err != nil {
		l.Err(err, "查询窗口失败")
		return
	}
	bounds := browser.Bounds{WindowState: browser.WindowStateFullscreen}
	if err := client.Browser.SetWindowBounds(ctx, browser.NewSetWindowBoundsArgs(win.WindowID, bounds)); err != nil {
		l.Err(err, "设置全屏失败")
	}
}

// webURL 判断提交是否应更新当前地址
func webURL(raw string) bool { return policy.IsWebURL(raw) }
