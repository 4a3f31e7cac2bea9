package kiosk

import (
	"time"

	"kioskd/internal/inject"
	"kioskd/internal/overlay"
	"kioskd/internal/policy"
	"kioskd/pkg/model"
)

// ctrlKind 控制循环事件类型
type ctrlKind int

const (
	evWillNavigate ctrlKind = iota
	evCommitted
	evCommittedInPage
	evWindowOpen
	evLoadFailed
	evCrashed
	evHeartbeatMiss
	evHeartbeatOK
	evProbeOnline
	evBridgeCall
	evApplyLayers
	evReloadCurrent
	evFocusRequest
	evSettingsChanged
)

// ctrlEvent 投递到控制循环的事件
type ctrlEvent struct {
	kind     ctrlKind
	url      string
	detail   string
	flag     bool
	settings *model.Settings
}

// handlers 以事件类型为键的处理表
var handlers = map[ctrlKind]func(*Manager, ctrlEvent){
	evWillNavigate:    (*Manager).onWillNavigate,
	evCommitted:       (*Manager).onCommitted,
	evCommittedInPage: (*Manager).onCommittedInPage,
	evWindowOpen:      (*Manager).onWindowOpen,
	evLoadFailed:      (*Manager).onLoadFailed,
	evCrashed:         (*Manager).onCrashed,
	evHeartbeatMiss:   (*Manager).onHeartbeatMiss,
	evHeartbeatOK:     (*Manager).onHeartbeatOK,
	evProbeOnline:     (*Manager).onProbeOnline,
	evBridgeCall:      (*Manager).onBridgeCall,
	evApplyLayers:     (*Manager).onApplyLayers,
	evReloadCurrent:   (*Manager).onReloadCurrent,
	evFocusRequest:    (*Manager).onFocusRequest,
	evSettingsChanged: (*Manager).onSettingsChanged,
}

func (m *Manager) dispatch(ev ctrlEvent) {
	if h, ok := handlers[ev.kind]; ok {
		h(m, ev)
	}
}

func (m *Manager) onWillNavigate(ev ctrlEvent) {
	d := m.engine.Decide(model.NavWillNavigate, ev.url)
	if d.Action == policy.ActionRewrite {
		m.log.Info("导航目标改写", "from", ev.url, "to", d.URL)
		if err := m.navigate(d.URL); err != nil {
			m.log.Err(err, "改写导航失败", "url", d.URL)
		}
		m.emit(model.EventRewritten, ev.url, d.URL)
	}
}

// onCommitted 页面提交：更新会话、清理故障状态并在沉降延迟后重注常驻层
func (m *Manager) onCommitted(ev ctrlEvent) {
	if !webURL(ev.url) {
		return
	}
	m.sess.Commit(ev.url)
	m.prober.Stop()
	m.sess.SetOnline(true)
	if _, changed := m.machine.Apply(overlay.EventCommitted); changed {
		m.emit(model.EventRecovered, ev.url, "")
	}
	m.sess.SetOverlay(model.OverlayNone)
	m.emit(model.EventNavigated, ev.url, "")
	m.settle(evApplyLayers)
}

func (m *Manager) onCommittedInPage(ev ctrlEvent) {
	if m.sess.Commit(ev.url) {
		m.emit(model.EventNavigated, ev.url, "in-page")
	}
}

// onWindowOpen 拒绝新窗口：改写后在唯一窗口中加载
func (m *Manager) onWindowOpen(ev ctrlEvent) {
	d := m.engine.Decide(model.NavOpenNewWindow, ev.url)
	m.log.Info("新窗口请求转入主窗口", "url", d.URL)
	if err := m.navigate(d.URL); err != nil {
		m.log.Err(err, "弹窗转载失败", "url", d.URL)
	}
	m.emit(model.EventPopupDenied, ev.url, d.URL)
}

func (m *Manager) onLoadFailed(ev ctrlEvent) {
	fault := overlay.ClassifyFailure(ev.detail)
	st, changed := m.machine.Apply(fault)
	if !changed && st != overlay.StateNetworkError && st != overlay.StateLoadError {
		return
	}
	m.emit(model.EventLoadFailed, ev.url, ev.detail)
	if fault == overlay.EventNetworkFailure {
		m.sess.SetOnline(false)
	}
	m.showFault(st, ev.detail)
}

func (m *Manager) onCrashed(ctrlEvent) {
	st, changed := m.machine.Apply(overlay.EventCrash)
	if !changed {
		return
	}
	m.emit(model.EventCrashed, m.sess.CurrentURL(), "")
	m.showFault(st, "")
}

func (m *Manager) onHeartbeatMiss(ctrlEvent) {
	st, changed := m.machine.Apply(overlay.EventHang)
	if !changed {
		return
	}
	m.emit(model.EventHang, m.sess.CurrentURL(), "")
	m.showFault(st, "")
}

// onHeartbeatOK 响应恢复时自动清除等待提示；失焦时夺回前台
func (m *Manager) onHeartbeatOK(ev ctrlEvent) {
	if m.machine.State() == overlay.StateUnresponsive {
		if _, changed := m.machine.Apply(overlay.EventResponsive); changed {
			m.sess.SetOverlay(model.OverlayNone)
			if err := m.injector.ClearOverlay(m.ctx); err != nil {
				m.log.Err(err, "清除覆盖层失败")
			}
			m.emit(model.EventRecovered, m.sess.CurrentURL(), "responsive")
		}
	}
	if !ev.flag && !m.opts.Dev {
		if err := m.client.Page.BringToFront(m.ctx); err != nil {
			m.log.Err(err, "夺回前台失败")
		}
	}
}

// onProbeOnline 恢复探测成功：清除覆盖层并触发恰好一次重载
func (m *Manager) onProbeOnline(ev ctrlEvent) {
	m.emit(model.EventProbe, ev.url, "")
	if _, changed := m.machine.Apply(overlay.EventProbeOnline); !changed {
		return
	}
	m.sess.SetOnline(true)
	m.sess.SetOverlay(model.OverlayNone)
	if err := m.injector.ClearOverlay(m.ctx); err != nil {
		m.log.Debug("清除覆盖层失败", "error", err.Error())
	}
	m.emit(model.EventRecovered, m.sess.CurrentURL(), "probe")
	if err := m.navigate(m.sess.CurrentURL()); err != nil {
		m.log.Err(err, "恢复重载失败")
	}
}

func (m *Manager) onReloadCurrent(ctrlEvent) {
	if err := m.navigate(m.sess.CurrentURL()); err != nil {
		m.log.Err(err, "重载当前页失败")
	}
}

// onApplyLayers 重注常驻层：导航坞、软件光标与快捷键拦截
func (m *Manager) onApplyLayers(ctrlEvent) {
	cfg := m.store.All()
	if m.dockVisible {
		if err := m.injector.ApplyDock(m.ctx, cfg); err != nil {
			m.log.Err(err, "导航坞注入失败")
		}
	}
	if err := m.injector.ApplyCursor(m.ctx, cfg); err != nil {
		m.log.Err(err, "软件光标注入失败")
	}
	if err := m.injector.ApplyKeyGuard(m.ctx, m.opts.Dev); err != nil {
		m.log.Err(err, "快捷键拦截注入失败")
	}
}

func (m *Manager) onFocusRequest(ctrlEvent) {
	if err := m.client.Page.BringToFront(m.ctx); err != nil {
		m.log.Err(err, "夺回前台失败")
	}
}

// onSettingsChanged 配置文件外部变更后的热应用
func (m *Manager) onSettingsChanged(ev ctrlEvent) {
	if ev.settings == nil {
		return
	}
	if ev.settings.HomeURL != m.sess.TargetURL() {
		if err := m.engine.SetHome(ev.settings.HomeURL); err != nil {
			m.log.Err(err, "主页地址非法，保持原值", "url", ev.settings.HomeURL)
		} else {
			m.sess.SetTargetURL(ev.settings.HomeURL)
		}
	}
	m.emit(model.EventConfig, "", "external")
	m.post(ctrlEvent{kind: evApplyLayers})
}

// showFault 按状态机结果展示故障覆盖层。注入失败时退回独立静态页，
// 崩溃恢复用整页提示（死亡页面无法承载注入）并定时重载。
func (m *Manager) showFault(st overlay.State, detail string) {
	o := overlay.OverlayFor(st)
	m.sess.SetOverlay(o)
	switch st {
	case overlay.StateCrashed:
		if err := m.navigate(inject.CrashPageURL(detail)); err != nil {
			m.log.Err(err, "崩溃页导航失败")
		}
		delay := time.Duration(m.cfg.Health.CrashReloadDelayMS) * time.Millisecond
		time.AfterFunc(delay, func() {
			m.post(ctrlEvent{kind: evReloadCurrent})
		})
	case overlay.StateNetworkError:
		m.injectFault(o, detail)
		m.prober.Start(m.sess.CurrentURL())
	case overlay.StateLoadError:
		m.injectFault(o, detail)
	case overlay.StateUnresponsive:
		// 失去响应的页面多半无法执行注入，后台尽力尝试，
		// 不让控制循环等待；也不导航离开，页面可能自行恢复
		go func() {
			if err := m.injector.ShowOverlay(m.ctx, o, ""); err != nil {
				m.log.Warn("等待提示注入失败", "error", err.Error())
			}
		}()
	}
}

func (m *Manager) injectFault(o model.OverlayState, detail string) {
	if err := m.injector.ShowOverlay(m.ctx, o, detail); err != nil {
		m.log.Err(err, "覆盖层注入失败，退回静态页", "overlay", string(o))
		if err := m.navigate(inject.StatusPageURL(o, detail)); err != nil {
			m.log.Err(err, "静态故障页导航失败")
		}
	}
}
