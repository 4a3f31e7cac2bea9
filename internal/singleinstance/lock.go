package singleinstance

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kioskd/internal/logger"
)

// ErrAlreadyRunning 已有实例在运行；本次启动方应直接退出
var ErrAlreadyRunning = errors.New("another instance is already running")

// Lock 进程级单实例锁。基于 unix socket：第二个实例连上后发送
// focus 指令，由运行中的实例把窗口带回前台，新实例随即退出。
type Lock struct {
	ln   net.Listener
	path string
	log  logger.Logger
}

// DefaultSocketPath 返回锁套接字路径
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "kioskd.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("kioskd-%d.sock", os.Getuid()))
}

// Acquire 获取单实例锁。已有实例存活时向其发送 focus 并返回
// ErrAlreadyRunning；残留的死套接字会被清理后重新监听。
func Acquire(path string, onFocus func(), l logger.Logger) (*Lock, error) {
	if l == nil {
		l = logger.NewNop()
	}
	if conn, err := net.DialTimeout("unix", path, time.Second); err == nil {
		fmt.Fprintln(conn, "focus")
		conn.Close()
		return nil, ErrAlreadyRunning
	}
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on lock socket: %w", err)
	}
	lk := &Lock{ln: ln, path: path, log: l}
	go lk.serve(onFocus)
	l.Info("获取单实例锁", "socket", path)
	return lk, nil
}

func (lk *Lock) serve(onFocus func()) {
	for {
		conn, err := lk.ln.Accept()
		if err != nil {
			return
		}
		go func(c net.Conn) {
			defer c.Close()
			c.SetReadDeadline(time.Now().Add(2 * time.Second))
			line, err := bufio.NewReader(c).ReadString('\n')
			if err != nil {
				return
			}
			if strings.TrimSpace(line) == "focus" {
				lk.log.Info("收到第二实例的 focus 请求")
				if onFocus != nil {
					onFocus()
				}
			}
		}(conn)
	}
}

// Release 释放锁并清理套接字
func (lk *Lock) Release() {
	lk.ln.Close()
	_ = os.Remove(lk.path)
}
