package inject

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"kioskd/internal/logger"
	"kioskd/pkg/model"
)

// evalTimeout 注入脚本的执行硬超时，失去响应的页面不能拖住调用方
const evalTimeout = 3 * time.Second

// Evaluator 向活动页面执行脚本的窄适配器，由 CDP 层实现
type Evaluator interface {
	Eval(ctx context.Context, expression string) error
}

// Injector 页面 UI 注入器。所有层按固定元素 ID 先删后建，重复注入幂等；
// 页面整页导航会摧毁注入的 DOM，注入器在每次成功提交后被重新调用。
type Injector struct {
	ev  Evaluator
	log logger.Logger
}

func New(ev Evaluator, l logger.Logger) *Injector {
	if l == nil {
		l = logger.NewNop()
	}
	return &Injector{ev: ev, log: l}
}

// ServiceInfo 服务菜单展示的只读运行信息
type ServiceInfo struct {
	CurrentURL string
	Hostname   string
	Online     bool
	Addresses  []string
	Recent     []model.Event
}

var dockAnchors = map[string]string{
	"bottom-right": "right:16px;bottom:16px;",
	"bottom-left":  "left:16px;bottom:16px;",
	"top-right":    "right:16px;top:16px;",
	"top-left":     "left:16px;top:16px;",
	"center-right": "right:16px;top:50%;margin-top:-30px;",
	"center-left":  "left:16px;top:50%;margin-top:-30px;",
}

var dockButtonPx = map[string]int{"small": 34, "medium": 42, "large": 52}
var dockFontPx = map[string]int{"small": 15, "medium": 18, "large": 22}
var cursorPx = map[string]int{"small": 20, "medium": 26, "large": 34, "xlarge": 44}

// ApplyDock 注入导航坞，位置与尺寸来自持久化配置
func (in *Injector) ApplyDock(ctx context.Context, cfg model.Settings) error {
	anchor, ok := dockAnchors[cfg.DockPosition]
	if !ok {
		anchor = dockAnchors["bottom-right"]
	}
	btn, ok := dockButtonPx[cfg.DockSize]
	if !ok {
		btn = dockButtonPx["medium"]
	}
	font, ok := dockFontPx[cfg.DockSize]
	if !ok {
		font = dockFontPx["medium"]
	}
	return in.render(ctx, dockTpl, map[string]any{
		"id":     idDock,
		"anchor": anchor,
		"btn":    btn,
		"font":   font,
	})
}

// RemoveDock 拆除导航坞（隐藏导航面板时调用）
func (in *Injector) RemoveDock(ctx context.Context) error {
	return in.eval(ctx, hideDockJS)
}

// ApplyCursor 注入软件光标并强制隐藏原生光标；
// 主题为 system 时拆除覆盖层并还原原生光标
func (in *Injector) ApplyCursor(ctx context.Context, cfg model.Settings) error {
	if cfg.CursorTheme == model.CursorThemeSystem {
		return in.eval(ctx, removeCursorJS)
	}
	size, ok := cursorPx[cfg.CursorSize]
	if !ok {
		size = cursorPx["medium"]
	}
	return in.render(ctx, cursorTpl, map[string]any{
		"id":      idCursor,
		"styleId": idCursorStyle,
		"size":    size,
		"glyphs":  glyphSet(cfg.CursorTheme, size),
	})
}

// ShowOverlay 展示状态覆盖层，先拆除已有覆盖层再注入
func (in *Injector) ShowOverlay(ctx context.Context, state model.OverlayState, detail string) error {
	params := map[string]any{"id": idOverlay, "retryLabel": "Try again"}
	switch state {
	case model.OverlayLoading:
		params["title"] = "Starting..."
		params["spinner"] = true
	case model.OverlayNetworkError:
		params["title"] = "No internet connection"
		params["detail"] = "Waiting for the network to come back."
		params["retry"] = true
	case model.OverlayLoadError:
		params["title"] = "Something went wrong"
		params["detail"] = detail
		params["retry"] = true
	case model.OverlayUnresponsive:
		params["title"] = "Please wait..."
		params["detail"] = "The dashboard is not responding."
		params["spinner"] = true
	default:
		return fmt.Errorf("overlay state %q has no injected form", state)
	}
	return in.render(ctx, overlayTpl, params)
}

// ClearOverlay 拆除状态覆盖层
func (in *Injector) ClearOverlay(ctx context.Context) error {
	return in.eval(ctx, clearOverlayJS)
}

// ShowSettings 注入设置面板，控件取值实时写回配置存储
func (in *Injector) ShowSettings(ctx context.Context, cfg model.Settings) error {
	fields := []map[string]any{
		{"key": "cursorTheme", "label": "Cursor theme", "value": cfg.CursorTheme, "options": model.CursorThemes},
		{"key": "cursorSize", "label": "Cursor size", "value": cfg.CursorSize, "options": model.CursorSizes},
		{"key": "dockPosition", "label": "Dock position", "value": cfg.DockPosition, "options": model.DockPositions},
		{"key": "dockSize", "label": "Dock size", "value": cfg.DockSize, "options": model.DockSizes},
		{"key": "homeUrl", "label": "Home", "value": cfg.HomeURL},
	}
	return in.render(ctx, settingsTpl, map[string]any{
		"id":         idSettings,
		"title":      "Kiosk settings",
		"resetLabel": "Reset",
		"closeLabel": "Done",
		"fields":     fields,
	})
}

// HideSettings 关闭设置面板
func (in *Injector) HideSettings(ctx context.Context) error {
	return in.eval(ctx, hideSettingsJS)
}

// ShowServiceMenu 注入服务诊断菜单
func (in *Injector) ShowServiceMenu(ctx context.Context, info ServiceInfo) error {
	recent := make([]map[string]string, 0, len(info.Recent))
	for _, ev := range info.Recent {
		detail := ev.Detail
		if detail == "" {
			detail = ev.URL
		}
		recent = append(recent, map[string]string{"type": ev.Type, "detail": detail})
	}
	addresses := info.Addresses
	if addresses == nil {
		addresses = []string{}
	}
	return in.render(ctx, serviceTpl, map[string]any{
		"id":          idService,
		"currentUrl":  info.CurrentURL,
		"hostname":    info.Hostname,
		"online":      info.Online,
		"addresses":   addresses,
		"recent":      recent,
		"goLabel":     "Go",
		"reloadLabel": "Reload",
		"closeLabel":  "Close",
	})
}

// HideServiceMenu 关闭服务菜单
func (in *Injector) HideServiceMenu(ctx context.Context) error {
	return in.eval(ctx, hideServiceJS)
}

// ApplyKeyGuard 注入快捷键拦截脚本；dev 模式只保留服务菜单热键
func (in *Injector) ApplyKeyGuard(ctx context.Context, dev bool) error {
	return in.render(ctx, keysTpl, map[string]any{"dev": dev})
}

// BridgeShim 返回桥接脚本源码，由 CDP 层安装到每个新文档
func BridgeShim() string { return bridgeShimJS }

// render 将模板参数编码为 JSON 后渲染并执行
func (in *Injector) render(ctx context.Context, tpl *template.Template, params map[string]any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, map[string]string{"Params": string(raw)}); err != nil {
		return fmt.Errorf("render %s: %w", tpl.Name(), err)
	}
	return in.eval(ctx, buf.String())
}

func (in *Injector) eval(ctx context.Context, script string) error {
	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()
	if err := in.ev.Eval(ctx, script); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}
