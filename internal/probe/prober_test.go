package probe

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeFiresOnceOnRecovery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var fired atomic.Int32
	p := New(20*time.Millisecond, false, func(string) {
		fired.Add(1)
	}, nil)

	require.True(t, p.Start(srv.URL))

	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// first success cancels the loop; no reload storm
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.False(t, p.Running())
}

func TestProbeAnyStatusCountsAsOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var fired atomic.Int32
	p := New(20*time.Millisecond, false, func(string) { fired.Add(1) }, nil)
	require.True(t, p.Start(srv.URL))

	require.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestProbeSecondStartIsNoop(t *testing.T) {
	p := New(time.Hour, false, nil, nil)
	require.True(t, p.Start("http://127.0.0.1:1"))
	defer p.Stop()

	assert.False(t, p.Start("http://127.0.0.1:1"))
	assert.True(t, p.Running())
}

func TestProbeKeepsPollingWhileUnreachable(t *testing.T) {
	var fired atomic.Int32
	p := New(20*time.Millisecond, false, func(string) { fired.Add(1) }, nil)

	// nothing listens on this port
	require.True(t, p.Start("http://127.0.0.1:1"))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.True(t, p.Running())

	p.Stop()
	assert.False(t, p.Running())
}
