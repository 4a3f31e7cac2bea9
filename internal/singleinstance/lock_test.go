package singleinstance

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecondInstanceRefocusesFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kioskd.sock")

	var focused atomic.Int32
	lk, err := Acquire(path, func() { focused.Add(1) }, nil)
	require.NoError(t, err)
	defer lk.Release()

	_, err = Acquire(path, nil, nil)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.Eventually(t, func() bool {
		return focused.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStaleSocketIsReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kioskd.sock")

	lk, err := Acquire(path, nil, nil)
	require.NoError(t, err)
	lk.Release()

	lk2, err := Acquire(path, nil, nil)
	require.NoError(t, err)
	lk2.Release()
}
