package inject

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kioskd/pkg/model"
)

type captureEvaluator struct {
	scripts []string
}

func (c *captureEvaluator) Eval(_ context.Context, expression string) error {
	c.scripts = append(c.scripts, expression)
	return nil
}

func (c *captureEvaluator) last() string {
	if len(c.scripts) == 0 {
		return ""
	}
	return c.scripts[len(c.scripts)-1]
}

func TestDockRemovesPriorInstance(t *testing.T) {
	ev := &captureEvaluator{}
	in := New(ev, nil)

	cfg := model.DefaultSettings()
	require.NoError(t, in.ApplyDock(context.Background(), cfg))
	require.NoError(t, in.ApplyDock(context.Background(), cfg))

	// 每次注入都先按 ID 删除旧实例，双重注入不会产生重复层
	for _, script := range ev.scripts {
		assert.Contains(t, script, `rm(p.id)`)
		assert.Contains(t, script, idDock)
	}
}

func TestDockHonorsPositionAndSize(t *testing.T) {
	ev := &captureEvaluator{}
	in := New(ev, nil)

	cfg := model.DefaultSettings()
	cfg.DockPosition = "top-left"
	cfg.DockSize = "large"
	require.NoError(t, in.ApplyDock(context.Background(), cfg))

	assert.Contains(t, ev.last(), "left:16px;top:16px;")
	assert.Contains(t, ev.last(), `"btn":52`)
}

func TestCursorSystemThemeTearsDownOverlay(t *testing.T) {
	ev := &captureEvaluator{}
	in := New(ev, nil)

	cfg := model.DefaultSettings()
	cfg.CursorTheme = model.CursorThemeSystem
	require.NoError(t, in.ApplyCursor(context.Background(), cfg))

	script := ev.last()
	assert.Contains(t, script, idCursor)
	assert.Contains(t, script, idCursorStyle)
	assert.NotContains(t, script, "cursor:none")
}

func TestCursorOverlayForcesNativeCursorHidden(t *testing.T) {
	ev := &captureEvaluator{}
	in := New(ev, nil)

	cfg := model.DefaultSettings()
	cfg.CursorSize = "xlarge"
	require.NoError(t, in.ApplyCursor(context.Background(), cfg))

	script := ev.last()
	assert.Contains(t, script, "cursor:none !important")
	assert.Contains(t, script, `"size":44`)
}

func TestOverlayVariants(t *testing.T) {
	ev := &captureEvaluator{}
	in := New(ev, nil)

	require.NoError(t, in.ShowOverlay(context.Background(), model.OverlayNetworkError, ""))
	assert.Contains(t, ev.last(), "No internet connection")
	assert.Contains(t, ev.last(), `"retry":true`)

	require.NoError(t, in.ShowOverlay(context.Background(), model.OverlayLoadError, "net::ERR_EMPTY_RESPONSE"))
	assert.Contains(t, ev.last(), "net::ERR_EMPTY_RESPONSE")

	require.NoError(t, in.ShowOverlay(context.Background(), model.OverlayUnresponsive, ""))
	assert.NotContains(t, ev.last(), `"retry":true`)

	assert.Error(t, in.ShowOverlay(context.Background(), model.OverlayCrashed, ""))
}

func TestServiceMenuIncludesDiagnostics(t *testing.T) {
	ev := &captureEvaluator{}
	in := New(ev, nil)

	info := ServiceInfo{
		CurrentURL: "http://umbrel.local/app",
		Hostname:   "kiosk-01",
		Online:     true,
		Addresses:  []string{"192.168.1.40"},
		Recent:     []model.Event{{Type: model.EventRewritten, URL: "http://umbrel.local:3000/x"}},
	}
	require.NoError(t, in.ShowServiceMenu(context.Background(), info))

	script := ev.last()
	assert.Contains(t, script, "http://umbrel.local/app")
	assert.Contains(t, script, "kiosk-01")
	assert.Contains(t, script, `"online":true`)
	assert.Contains(t, script, "192.168.1.40")
	assert.Contains(t, script, model.EventRewritten)
}

func TestSettingsPanelListsAllFields(t *testing.T) {
	ev := &captureEvaluator{}
	in := New(ev, nil)

	require.NoError(t, in.ShowSettings(context.Background(), model.DefaultSettings()))
	script := ev.last()
	for _, key := range []string{"cursorTheme", "cursorSize", "dockPosition", "dockSize", "homeUrl"} {
		assert.Contains(t, script, key)
	}
}

func TestKeyGuardDevMode(t *testing.T) {
	ev := &captureEvaluator{}
	in := New(ev, nil)

	require.NoError(t, in.ApplyKeyGuard(context.Background(), true))
	assert.Contains(t, ev.last(), `"dev":true`)
}

type deadlineEvaluator struct {
	hasDeadline bool
}

func (d *deadlineEvaluator) Eval(ctx context.Context, _ string) error {
	_, d.hasDeadline = ctx.Deadline()
	return nil
}

func TestEvalRunsUnderDeadline(t *testing.T) {
	ev := &deadlineEvaluator{}
	in := New(ev, nil)

	// 注入脚本执行必须有硬超时，挂起的页面不能拖住调用方
	require.NoError(t, in.ShowOverlay(context.Background(), model.OverlayUnresponsive, ""))
	assert.True(t, ev.hasDeadline)
}

func TestPagesAreDataURLs(t *testing.T) {
	assert.True(t, strings.HasPrefix(LoadingPageURL(), "data:text/html;base64,"))
	assert.True(t, strings.HasPrefix(CrashPageURL("boom"), "data:text/html;base64,"))
}
