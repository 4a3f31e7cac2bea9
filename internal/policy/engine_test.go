package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kioskd/pkg/model"
)

func newEngine(t *testing.T, home string) *Engine {
	t.Helper()
	e, err := New(home, nil)
	require.NoError(t, err)
	return e
}

func TestRewriteInternalHost(t *testing.T) {
	e := newEngine(t, "http://umbrel.local")

	cases := []struct {
		name string
		in   string
		out  string
	}{
		{"container subnet with port", "http://10.21.0.5:3000/app/settings", "http://umbrel.local:3000/app/settings"},
		{"container subnet no port", "http://10.21.21.9/files", "http://umbrel.local/files"},
		{"localhost", "http://localhost:8080/x?a=1", "http://umbrel.local:8080/x?a=1"},
		{"loopback ip", "http://127.0.0.1/y#frag", "http://umbrel.local/y#frag"},
		{"query and fragment preserved", "http://10.21.0.2:3000/p?q=v&r=w#sec", "http://umbrel.local:3000/p?q=v&r=w#sec"},
		{"https scheme preserved", "https://10.21.3.4:8443/s", "https://umbrel.local:8443/s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := e.Rewrite(tc.in)
			assert.True(t, changed)
			assert.Equal(t, tc.out, got)
		})
	}
}

func TestRewriteFallsBackToHomePort(t *testing.T) {
	e := newEngine(t, "http://umbrel.local:8080")

	got, changed := e.Rewrite("http://10.21.0.5/app")
	assert.True(t, changed)
	assert.Equal(t, "http://umbrel.local:8080/app", got)

	// 目标自带端口仍然优先于主页端口
	got, changed = e.Rewrite("http://10.21.0.5:3000/app")
	assert.True(t, changed)
	assert.Equal(t, "http://umbrel.local:3000/app", got)
}

func TestRewriteLeavesExternalHosts(t *testing.T) {
	e := newEngine(t, "http://umbrel.local")

	for _, raw := range []string{
		"http://umbrel.local/app",
		"http://example.com/page?x=1",
		"https://192.168.1.10/other-subnet",
		"http://10.200.0.1/not-container-prefix",
	} {
		got, changed := e.Rewrite(raw)
		assert.False(t, changed, raw)
		assert.Equal(t, raw, got)
	}
}

func TestRewriteMalformedURLFailsOpen(t *testing.T) {
	e := newEngine(t, "http://umbrel.local")

	raw := "http://[::1%z/bad"
	got, changed := e.Rewrite(raw)
	assert.False(t, changed)
	assert.Equal(t, raw, got)
}

func TestRewriteCustomPrefixes(t *testing.T) {
	e, err := New("http://dash.lan", []string{"172.18.", "10.21."})
	require.NoError(t, err)

	got, changed := e.Rewrite("http://172.18.0.7:9000/ui")
	assert.True(t, changed)
	assert.Equal(t, "http://dash.lan:9000/ui", got)
}

func TestDecideDeniesNewWindows(t *testing.T) {
	e := newEngine(t, "http://umbrel.local")

	d := e.Decide(model.NavOpenNewWindow, "http://10.21.0.5:3000/app/settings")
	assert.Equal(t, ActionDenyWindow, d.Action)
	assert.Equal(t, "http://umbrel.local:3000/app/settings", d.URL)

	d = e.Decide(model.NavOpenNewWindow, "http://example.com/docs")
	assert.Equal(t, ActionDenyWindow, d.Action)
	assert.Equal(t, "http://example.com/docs", d.URL)
}

func TestDecideRewritesRedirects(t *testing.T) {
	e := newEngine(t, "http://umbrel.local")

	d := e.Decide(model.NavWillRedirect, "http://10.21.0.9:5000/login")
	assert.Equal(t, ActionRewrite, d.Action)
	assert.Equal(t, "http://umbrel.local:5000/login", d.URL)

	d = e.Decide(model.NavWillNavigate, "http://umbrel.local/app")
	assert.Equal(t, ActionAllow, d.Action)
}

func TestSetHomeRejectsNonWebSchemes(t *testing.T) {
	e := newEngine(t, "http://umbrel.local")

	require.Error(t, e.SetHome("file:///etc/passwd"))
	require.NoError(t, e.SetHome("https://dash.example.org"))

	got, changed := e.Rewrite("http://10.21.0.5/x")
	assert.True(t, changed)
	assert.Equal(t, "http://dash.example.org/x", got)
}

func TestIsWebURL(t *testing.T) {
	assert.True(t, IsWebURL("http://umbrel.local"))
	assert.True(t, IsWebURL("https://example.com/a"))
	assert.False(t, IsWebURL("data:text/html,hi"))
	assert.False(t, IsWebURL("file:///srv/error.html"))
	assert.False(t, IsWebURL("about:blank"))
}
