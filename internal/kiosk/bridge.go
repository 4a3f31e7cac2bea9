package kiosk

import (
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/mafredri/cdp/protocol/page"

	"kioskd/internal/inject"
	"kioskd/internal/overlay"
	"kioskd/pkg/model"
)

// bridgeEnvelope 页面经 binding 发来的调用信封
type bridgeEnvelope struct {
	ID     int64        `json:"id"`
	Method string       `json:"method"`
	Params bridgeParams `json:"params"`
}

type bridgeParams struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	URL   string `json:"url"`
}

// onBridgeCall 解析并分发页面桥接调用。桥接是唯一允许页面影响宿主的
// 通道，方法名未知或参数非法时只回复失败，绝不透传到内容引擎。
func (m *Manager) onBridgeCall(ev ctrlEvent) {
	var env bridgeEnvelope
	if err := json.Unmarshal([]byte(ev.detail), &env); err != nil {
		m.log.Warn("桥接信封解析失败", "payload", ev.detail)
		return
	}
	m.log.Debug("桥接调用", "method", env.Method)
	result := m.handleBridge(env)
	m.reply(env.ID, result)
}

func (m *Manager) handleBridge(env bridgeEnvelope) map[string]any {
	switch env.Method {
	case "retry":
		return m.bridgeRetry()
	case "reload":
		m.reload(false)
		return okResult()
	case "navigate":
		return m.bridgeNavigate(env.Params.URL)
	case "goBack":
		return m.bridgeHistory(-1)
	case "goForward":
		return m.bridgeHistory(+1)
	case "goHome":
		return m.bridgeGoHome()
	case "clearCache":
		return m.bridgeClearCache()
	case "toggleNavPanel":
		return m.bridgeToggleNavPanel()
	case "openSettings":
		return m.bridgeOpenSettings()
	case "closeSettings":
		return m.bridgeCloseSettings()
	case "getConfig":
		return map[string]any{"ok": true, "config": m.store.All()}
	case "setConfig":
		return m.bridgeSetConfig(env.Params.Key, env.Params.Value)
	case "resetConfig":
		return m.bridgeResetConfig()
	case "toggleServiceMenu":
		return m.bridgeToggleServiceMenu()
	case "hideServiceMenu":
		return m.bridgeHideServiceMenu()
	default:
		m.log.Warn("未知桥接方法", "method", env.Method)
		return failResult("unknown method")
	}
}

// bridgeRetry 故障覆盖层的重试按钮：回到加载态并重载当前地址
func (m *Manager) bridgeRetry() map[string]any {
	m.machine.Apply(overlay.EventRetry)
	m.sess.SetOverlay(model.OverlayLoading)
	if err := m.navigate(m.sess.CurrentURL()); err != nil {
		m.log.Err(err, "重试导航失败")
		return failResult(err.Error())
	}
	return okResult()
}

// bridgeNavigate 服务菜单的地址导航，仅接受 http/https，
// 且与自发导航走同一套改写策略
func (m *Manager) bridgeNavigate(raw string) map[string]any {
	if !webURL(raw) {
		m.log.Warn("拒绝非 web 地址导航", "url", raw)
		return failResult("only http/https urls")
	}
	target, _ := m.engine.Rewrite(raw)
	if err := m.navigate(target); err != nil {
		return failResult(err.Error())
	}
	return okResult()
}

// bridgeHistory 历史导航，跳过本地加载页与故障页的历史条目
func (m *Manager) bridgeHistory(dir int) map[string]any {
	hist, err := m.client.Page.GetNavigationHistory(m.ctx)
	if err != nil {
		m.log.Err(err, "读取导航历史失败")
		return failResult(err.Error())
	}
	for i := hist.CurrentIndex + dir; i >= 0 && i < len(hist.Entries); i += dir {
		if !webURL(hist.Entries[i].URL) {
			continue
		}
		args := page.NewNavigateToHistoryEntryArgs(hist.Entries[i].ID)
		if err := m.client.Page.NavigateToHistoryEntry(m.ctx, args); err != nil {
			return failResult(err.Error())
		}
		return okResult()
	}
	return failResult("no history entry")
}

func (m *Manager) bridgeGoHome() map[string]any {
	if err := m.navigate(m.sess.TargetURL()); err != nil {
		return failResult(err.Error())
	}
	return okResult()
}

// bridgeClearCache 清空浏览器缓存后强制重载
func (m *Manager) bridgeClearCache() map[string]any {
	if err := m.client.Network.ClearBrowserCache(m.ctx); err != nil {
		m.log.Err(err, "清空缓存失败")
		return failResult(err.Error())
	}
	m.reload(true)
	return okResult()
}

func (m *Manager) bridgeToggleNavPanel() map[string]any {
	m.dockVisible = !m.dockVisible
	if m.dockVisible {
		if err := m.injector.ApplyDock(m.ctx, m.store.All()); err != nil {
			m.log.Err(err, "导航坞注入失败")
		}
	} else {
		if err := m.injector.RemoveDock(m.ctx); err != nil {
			m.log.Err(err, "导航坞拆除失败")
		}
	}
	return map[string]any{"ok": true, "visible": m.dockVisible}
}

func (m *Manager) bridgeOpenSettings() map[string]any {
	if err := m.injector.ShowSettings(m.ctx, m.store.All()); err != nil {
		return failResult(err.Error())
	}
	m.sess.SetOverlay(model.OverlaySettingsPanel)
	return okResult()
}

func (m *Manager) bridgeCloseSettings() map[string]any {
	if err := m.injector.HideSettings(m.ctx); err != nil {
		return failResult(err.Error())
	}
	m.sess.SetOverlay(model.OverlayNone)
	return okResult()
}

// bridgeSetConfig 写入配置并立即应用到对应的注入层
func (m *Manager) bridgeSetConfig(key, value string) map[string]any {
	if !m.store.Set(key, value) {
		return failResult("invalid key or value")
	}
	m.applyConfigKey(key, value)
	m.emit(model.EventConfig, "", key)
	return okResult()
}

func (m *Manager) applyConfigKey(key, value string) {
	cfg := m.store.All()
	switch key {
	case "cursorTheme", "cursorSize":
		if err := m.injector.ApplyCursor(m.ctx, cfg); err != nil {
			m.log.Err(err, "软件光标注入失败")
		}
	case "dockPosition", "dockSize":
		if m.dockVisible {
			if err := m.injector.ApplyDock(m.ctx, cfg); err != nil {
				m.log.Err(err, "导航坞注入失败")
			}
		}
	case "homeUrl":
		if err := m.engine.SetHome(value); err != nil {
			m.log.Err(err, "主页地址非法，保持原值", "url", value)
			return
		}
		m.sess.SetTargetURL(value)
	}
}

// bridgeResetConfig 恢复默认配置并刷新所有注入层与设置面板
func (m *Manager) bridgeResetConfig() map[string]any {
	if !m.store.Reset() {
		m.log.Warn("配置重置未落盘")
	}
	cfg := m.store.All()
	if err := m.engine.SetHome(cfg.HomeURL); err == nil {
		m.sess.SetTargetURL(cfg.HomeURL)
	}
	m.post(ctrlEvent{kind: evApplyLayers})
	if m.sess.Overlay() == model.OverlaySettingsPanel {
		if err := m.injector.ShowSettings(m.ctx, cfg); err != nil {
			m.log.Err(err, "设置面板刷新失败")
		}
	}
	m.emit(model.EventConfig, "", "reset")
	return okResult()
}

func (m *Manager) bridgeToggleServiceMenu() map[string]any {
	if m.sess.Overlay() == model.OverlayServiceMenu {
		return m.bridgeHideServiceMenu()
	}
	if err := m.injector.ShowServiceMenu(m.ctx, m.serviceInfo()); err != nil {
		return failResult(err.Error())
	}
	m.sess.SetOverlay(model.OverlayServiceMenu)
	return okResult()
}

func (m *Manager) bridgeHideServiceMenu() map[string]any {
	if err := m.injector.HideServiceMenu(m.ctx); err != nil {
		return failResult(err.Error())
	}
	if m.sess.Overlay() == model.OverlayServiceMenu {
		m.sess.SetOverlay(model.OverlayNone)
	}
	return okResult()
}

// serviceInfo 汇集服务菜单展示的运行信息
func (m *Manager) serviceInfo() inject.ServiceInfo {
	info := inject.ServiceInfo{
		CurrentURL: m.sess.CurrentURL(),
		Online:     m.sess.Online(),
		Addresses:  localIPv4s(),
	}
	if name, err := os.Hostname(); err == nil {
		info.Hostname = name
	}
	if m.journal != nil {
		info.Recent = m.journal.Recent(8)
	}
	return info
}

// localIPv4s 返回非回环 IPv4 地址
func localIPv4s() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			out = append(out, v4.String())
		}
	}
	return out
}

// reply 把结果回投给页面内挂起的 Promise
func (m *Manager) reply(id int64, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		m.log.Err(err, "桥接结果编码失败")
		return
	}
	expr := fmt.Sprintf("window.__kioskdReply(%d,%s)", id, raw)
	ev := cdpEvaluator{client: m.client}
	if err := ev.Eval(m.ctx, expr); err != nil {
		m.log.Debug("桥接结果回投失败", "error", err.Error())
	}
}

func okResult() map[string]any { return map[string]any{"ok": true} }

func failResult(msg string) map[string]any { return map[string]any{"ok": false, "error": msg} }
