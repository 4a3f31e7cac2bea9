package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"kioskd/pkg/model"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s := Open(filepath.Join(dir, "settings.json"), "", nil)
	t.Cleanup(s.Close)
	return s
}

func TestOpenCreatesDefaults(t *testing.T) {
	s := tempStore(t)
	assert.Equal(t, model.DefaultSettings(), s.All())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "dark", gjson.GetBytes(data, "cursorTheme").String())
}

func TestSetGetRoundTrip(t *testing.T) {
	s := tempStore(t)

	require.True(t, s.Set("cursorTheme", "light"))
	v, ok := s.Get("cursorTheme")
	require.True(t, ok)
	assert.Equal(t, "light", v)

	require.True(t, s.Set("dockPosition", "top-left"))
	assert.Equal(t, "top-left", s.All().DockPosition)

	// persisted immediately
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "light", gjson.GetBytes(data, "cursorTheme").String())
	assert.Equal(t, "top-left", gjson.GetBytes(data, "dockPosition").String())
}

func TestSetRejectsInvalidValues(t *testing.T) {
	s := tempStore(t)

	assert.False(t, s.Set("cursorTheme", "neon"))
	assert.False(t, s.Set("dockPosition", "middle"))
	assert.False(t, s.Set("noSuchKey", "x"))
	assert.Equal(t, model.DefaultSettings(), s.All())
}

func TestResetRestoresDefaults(t *testing.T) {
	s := tempStore(t)
	require.True(t, s.Set("cursorSize", "xlarge"))
	require.True(t, s.Set("homeUrl", "http://dash.lan"))

	require.True(t, s.Reset())
	assert.Equal(t, model.DefaultSettings(), s.All())
}

func TestUnknownKeysPreserved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cursorTheme":"light","experimental":{"x":1}}`), 0o644))

	s := Open(path, "", nil)
	defer s.Close()

	// known key kept, missing keys filled from defaults
	assert.Equal(t, "light", s.All().CursorTheme)
	assert.Equal(t, "medium", s.All().DockSize)

	require.True(t, s.Set("dockSize", "large"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gjson.GetBytes(data, "experimental.x").Int())
}

func TestInvalidPersistedValueFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cursorSize":"gigantic"}`), 0o644))

	s := Open(path, "", nil)
	defer s.Close()
	assert.Equal(t, "medium", s.All().CursorSize)
}

func TestFallbackPathWhenPrimaryUnwritable(t *testing.T) {
	dir := t.TempDir()
	fallback := filepath.Join(dir, "user", "settings.json")

	s := Open("/proc/kioskd-no-such-dir/settings.json", fallback, nil)
	defer s.Close()
	assert.Equal(t, fallback, s.Path())
	require.True(t, s.Set("dockSize", "small"))
}

func TestMemoryOnlyWhenNothingWritable(t *testing.T) {
	s := Open("", "", nil)
	defer s.Close()
	assert.Equal(t, "", s.Path())

	// write fails to persist but survives in memory
	assert.False(t, s.Set("dockSize", "small"))
	assert.Equal(t, "small", s.All().DockSize)
}
