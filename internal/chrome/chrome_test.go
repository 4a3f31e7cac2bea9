package chrome

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kioskd/internal/logger"
)

func TestBuildArgsKioskMode(t *testing.T) {
	args := buildArgs("/tmp/p", Options{DevToolsPort: 9222, InitialURL: "http://umbrel.local"})

	assert.Contains(t, args, "--kiosk")
	assert.Contains(t, args, "--remote-debugging-port=9222")
	assert.Contains(t, args, "--noerrdialogs")
	assert.NotContains(t, args, "--ignore-certificate-errors")
	assert.Equal(t, "http://umbrel.local", args[len(args)-1])
}

func TestBuildArgsDevMode(t *testing.T) {
	args := buildArgs("/tmp/p", Options{DevToolsPort: 9222, Dev: true})

	assert.NotContains(t, args, "--kiosk")
	assert.NotContains(t, args, "--start-fullscreen")
	assert.Equal(t, "about:blank", args[len(args)-1])
}

func TestBuildArgsInsecure(t *testing.T) {
	args := buildArgs("/tmp/p", Options{DevToolsPort: 9222, Insecure: true})
	assert.Contains(t, args, "--ignore-certificate-errors")
}

func TestFindExecutableCustomPath(t *testing.T) {
	_, err := FindExecutable("/no/such/browser")
	require.Error(t, err)
}

func TestReachableRejectsDeadEndpoint(t *testing.T) {
	assert.False(t, Reachable("http://127.0.0.1:1", 200*time.Millisecond))
}

func TestStopWithConcurrentWait(t *testing.T) {
	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())
	inst := &Instance{PID: cmd.Process.Pid, cmd: cmd, log: logger.NewNop()}

	// Stop 与外部 Wait 同时进行，进程只被收割一次
	waited := make(chan error, 1)
	go func() { waited <- inst.Wait() }()

	require.NoError(t, inst.Stop(5*time.Second))

	err := <-waited
	assert.Equal(t, inst.Wait(), err)
}
