package inject

import (
	"encoding/base64"
	"fmt"
	"html"

	"kioskd/pkg/model"
)

// 独立页面用于无法向现有文档注入脚本的场合：启动加载页，
// 以及渲染进程崩溃后的整页提示（死亡页面无法承载注入脚本）。

const loadingPageHTML = `<!doctype html><html><head><meta charset="utf-8"><title>Starting</title>
<style>
body{margin:0;height:100vh;display:flex;flex-direction:column;align-items:center;justify-content:center;
background:#111418;color:#e8e8ec;font-family:system-ui,sans-serif}
.spin{width:32px;height:32px;border:3px solid rgba(255,255,255,.2);border-top-color:#fff;
border-radius:50%;animation:s 1s linear infinite;margin-top:20px}
@keyframes s{to{transform:rotate(360deg)}}
</style></head><body><div style="font-size:26px">Starting...</div><div class="spin"></div></body></html>`

const crashPageHTML = `<!doctype html><html><head><meta charset="utf-8"><title>Restarting</title>
<style>
body{margin:0;height:100vh;display:flex;flex-direction:column;align-items:center;justify-content:center;
background:#111418;color:#e8e8ec;font-family:system-ui,sans-serif;text-align:center}
small{opacity:.6;margin-top:10px;max-width:70%%}
</style></head><body><div style="font-size:26px">Something crashed</div>
<small>%s</small><small>Reloading automatically...</small></body></html>`

// LoadingPageURL 启动加载页的 data 地址
func LoadingPageURL() string {
	return dataURL(loadingPageHTML)
}

// CrashPageURL 崩溃提示页的 data 地址
func CrashPageURL(detail string) string {
	return dataURL(fmt.Sprintf(crashPageHTML, html.EscapeString(detail)))
}

const statusPageHTML = `<!doctype html><html><head><meta charset="utf-8"><title>%s</title>
<style>
body{margin:0;height:100vh;display:flex;flex-direction:column;align-items:center;justify-content:center;
background:#111418;color:#e8e8ec;font-family:system-ui,sans-serif;text-align:center}
small{opacity:.6;margin-top:10px;max-width:70%%}
</style></head><body><div style="font-size:26px">%s</div><small>%s</small></body></html>`

// StatusPageURL 故障状态的静态页 data 地址，覆盖层注入失败时的退路
func StatusPageURL(state model.OverlayState, detail string) string {
	title := "Something went wrong"
	switch state {
	case model.OverlayNetworkError:
		title = "No internet connection"
	case model.OverlayUnresponsive:
		title = "Please wait..."
	}
	src := fmt.Sprintf(statusPageHTML, title, title, html.EscapeString(detail))
	return dataURL(src)
}

func dataURL(htmlSrc string) string {
	return "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlSrc))
}
