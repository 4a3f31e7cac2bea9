package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kioskd/pkg/model"
)

func TestCommitTracksOnlyWebURLs(t *testing.T) {
	s := New("http://umbrel.local", nil)
	assert.Equal(t, "http://umbrel.local", s.CurrentURL())

	assert.True(t, s.Commit("http://umbrel.local/app/files"))
	assert.Equal(t, "http://umbrel.local/app/files", s.CurrentURL())

	assert.False(t, s.Commit("data:text/html,<h1>loading</h1>"))
	assert.Equal(t, "http://umbrel.local/app/files", s.CurrentURL())

	assert.False(t, s.Commit("file:///srv/kioskd/error.html"))
	assert.Equal(t, "http://umbrel.local/app/files", s.CurrentURL())
}

func TestSessionStartsInLoadingState(t *testing.T) {
	s := New("http://umbrel.local", nil)
	assert.Equal(t, model.OverlayLoading, s.Overlay())
	assert.True(t, s.Online())

	s.SetOverlay(model.OverlayNone)
	assert.Equal(t, model.OverlayNone, s.Overlay())
}

func TestSetOnlineIsIdempotent(t *testing.T) {
	s := New("http://umbrel.local", nil)
	s.SetOnline(false)
	s.SetOnline(false)
	assert.False(t, s.Online())
	s.SetOnline(true)
	assert.True(t, s.Online())
}
