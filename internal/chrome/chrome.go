package chrome

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"kioskd/internal/logger"
)

// Options 启动本地 Chromium 的参数
type Options struct {
	Path         string
	DevToolsPort int
	UserDataDir  string
	Dev          bool
	Insecure     bool
	InitialURL   string
}

// Instance 已启动的浏览器进程
type Instance struct {
	PID         int
	DevToolsURL string
	UserDataDir string
	StartedAt   time.Time
	cmd         *exec.Cmd
	log         logger.Logger

	waitOnce sync.Once
	waitErr  error
}

// FindExecutable 在系统上定位 Chromium 系浏览器
func FindExecutable(customPath string) (string, error) {
	if customPath != "" {
		if !fileExists(customPath) {
			return "", fmt.Errorf("browser executable not found: %s", customPath)
		}
		return customPath, nil
	}
	var candidates []string
	switch runtime.GOOS {
	case "linux":
		candidates = []string{
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
		}
	case "darwin":
		candidates = []string{
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		}
	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("no chromium browser found")
}

// Launch 以终端模式启动浏览器并等待 DevTools 端口就绪
func Launch(opts Options, l logger.Logger) (*Instance, error) {
	if l == nil {
		l = logger.NewNop()
	}
	exe, err := FindExecutable(opts.Path)
	if err != nil {
		return nil, err
	}

	userDataDir := opts.UserDataDir
	if userDataDir == "" {
		userDataDir = filepath.Join(os.TempDir(), "kioskd-profile")
	}
	if err := os.MkdirAll(userDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create user data dir: %w", err)
	}

	args := buildArgs(userDataDir, opts)
	l.Info("启动浏览器", "exe", exe, "devtoolsPort", opts.DevToolsPort, "dev", opts.Dev)

	cmd := exec.Command(exe, args...)
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	inst := &Instance{
		PID:         cmd.Process.Pid,
		DevToolsURL: fmt.Sprintf("http://127.0.0.1:%d", opts.DevToolsPort),
		UserDataDir: userDataDir,
		StartedAt:   time.Now(),
		cmd:         cmd,
		log:         l,
	}

	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		if Reachable(inst.DevToolsURL, 500*time.Millisecond) {
			return inst, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	_ = cmd.Process.Kill()
	return nil, fmt.Errorf("devtools did not come up on port %d within 20s", opts.DevToolsPort)
}

// Stop 先尝试优雅退出，超时后强杀
func (i *Instance) Stop(timeout time.Duration) error {
	if i.cmd == nil || i.cmd.Process == nil {
		return nil
	}
	_ = i.cmd.Process.Signal(os.Interrupt)

	done := make(chan struct{})
	go func() { i.Wait(); close(done) }()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		i.log.Warn("浏览器未在超时内退出，强制结束", "pid", i.PID)
		err := i.cmd.Process.Kill()
		<-done
		return err
	}
}

// Wait 阻塞直到浏览器进程退出。进程只被收割一次，
// 并发与重复调用共享同一结果。
func (i *Instance) Wait() error {
	if i.cmd == nil {
		return nil
	}
	i.waitOnce.Do(func() { i.waitErr = i.cmd.Wait() })
	return i.waitErr
}

// Reachable 检查 DevTools 端口是否有响应
func Reachable(devtoolsURL string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimSuffix(devtoolsURL, "/")+"/json/version", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// buildArgs 组装终端模式的启动参数。非 dev 模式下全屏无边框、
// 禁用恢复提示与首个运行向导；insecure 模式接受无效证书。
func buildArgs(userDataDir string, opts Options) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", opts.DevToolsPort),
		fmt.Sprintf("--user-data-dir=%s", userDataDir),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-sync",
		"--disable-background-networking",
		"--disable-component-update",
		"--disable-translate",
		"--disable-session-crashed-bubble",
		"--hide-crash-restore-bubble",
		"--disable-infobars",
		"--noerrdialogs",
		"--disable-pinch",
		"--overscroll-history-navigation=0",
		"--autoplay-policy=no-user-gesture-required",
		"--password-store=basic",
	}
	if !opts.Dev {
		args = append(args, "--kiosk", "--start-fullscreen")
	}
	if opts.Insecure {
		args = append(args, "--ignore-certificate-errors")
	}
	if runtime.GOOS == "linux" {
		args = append(args, "--disable-dev-shm-usage")
	}
	if opts.InitialURL != "" {
		args = append(args, opts.InitialURL)
	} else {
		args = append(args, "about:blank")
	}
	return args
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
