package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kioskd/pkg/model"
)

func TestInitialStateIsLoading(t *testing.T) {
	m := New(nil)
	assert.Equal(t, StateLoading, m.State())
}

func TestNetworkFailureNeverBecomesLoadError(t *testing.T) {
	m := New(nil)
	m.Apply(EventCommitted)
	assert.Equal(t, StateReady, m.State())

	st, changed := m.Apply(ClassifyFailure("net::ERR_CONNECTION_REFUSED"))
	assert.True(t, changed)
	assert.Equal(t, StateNetworkError, st)
}

func TestNonNetworkFailureNeverBecomesNetworkError(t *testing.T) {
	m := New(nil)
	m.Apply(EventCommitted)

	st, changed := m.Apply(ClassifyFailure("net::ERR_ABORTED"))
	assert.True(t, changed)
	assert.Equal(t, StateLoadError, st)
}

func TestClassifyFailure(t *testing.T) {
	networkClass := []string{
		"net::ERR_CONNECTION_REFUSED",
		"net::ERR_CONNECTION_RESET",
		"net::ERR_CONNECTION_TIMED_OUT",
		"net::ERR_NAME_NOT_RESOLVED",
		"net::ERR_INTERNET_DISCONNECTED",
		"net::ERR_ADDRESS_UNREACHABLE",
	}
	for _, code := range networkClass {
		assert.Equal(t, EventNetworkFailure, ClassifyFailure(code), code)
	}

	loadClass := []string{
		"net::ERR_ABORTED",
		"net::ERR_BLOCKED_BY_CLIENT",
		"net::ERR_EMPTY_RESPONSE",
		"net::ERR_CERT_AUTHORITY_INVALID",
		"",
	}
	for _, code := range loadClass {
		assert.Equal(t, EventLoadFailure, ClassifyFailure(code), code)
	}
}

func TestProbeOnlineRecoversFromNetworkError(t *testing.T) {
	m := New(nil)
	m.Apply(EventCommitted)
	m.Apply(EventNetworkFailure)
	assert.Equal(t, StateNetworkError, m.State())

	st, changed := m.Apply(EventProbeOnline)
	assert.True(t, changed)
	assert.Equal(t, StateReady, st)
}

func TestProbeOnlineIgnoredOutsideNetworkError(t *testing.T) {
	m := New(nil)
	m.Apply(EventCommitted)
	m.Apply(EventLoadFailure)

	st, changed := m.Apply(EventProbeOnline)
	assert.False(t, changed)
	assert.Equal(t, StateLoadError, st)
}

func TestHangRecoversWithoutReload(t *testing.T) {
	m := New(nil)
	m.Apply(EventCommitted)
	m.Apply(EventHang)
	assert.Equal(t, StateUnresponsive, m.State())

	st, changed := m.Apply(EventResponsive)
	assert.True(t, changed)
	assert.Equal(t, StateReady, st)
}

func TestCrashReachableFromAnyState(t *testing.T) {
	for _, setup := range [][]Event{
		{},
		{EventCommitted},
		{EventCommitted, EventNetworkFailure},
		{EventCommitted, EventLoadFailure},
		{EventCommitted, EventHang},
	} {
		m := New(nil)
		for _, ev := range setup {
			m.Apply(ev)
		}
		st, _ := m.Apply(EventCrash)
		assert.Equal(t, StateCrashed, st)
	}
}

func TestCommitClearsAnyFault(t *testing.T) {
	for _, fault := range []Event{EventNetworkFailure, EventLoadFailure, EventCrash, EventHang} {
		m := New(nil)
		m.Apply(EventCommitted)
		m.Apply(fault)

		st, changed := m.Apply(EventCommitted)
		assert.True(t, changed)
		assert.Equal(t, StateReady, st)
	}
}

func TestOverlayFor(t *testing.T) {
	assert.Equal(t, model.OverlayNone, OverlayFor(StateReady))
	assert.Equal(t, model.OverlayLoading, OverlayFor(StateLoading))
	assert.Equal(t, model.OverlayNetworkError, OverlayFor(StateNetworkError))
	assert.Equal(t, model.OverlayLoadError, OverlayFor(StateLoadError))
	assert.Equal(t, model.OverlayCrashed, OverlayFor(StateCrashed))
	assert.Equal(t, model.OverlayUnresponsive, OverlayFor(StateUnresponsive))
}
