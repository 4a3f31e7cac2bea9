package probe

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"time"

	"kioskd/internal/logger"
)

// Prober 网络恢复探测器。网络故障期间按固定间隔向当前地址发起
// 轻量 HEAD 请求，首次成功即回调并停止自身。同一时刻最多一个
// 探测循环在运行，重复 Start 是无操作。
type Prober struct {
	interval time.Duration
	client   *http.Client
	onOnline func(url string)
	log      logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New 创建探测器；insecure 模式下接受无效证书
func New(interval time.Duration, insecure bool, onOnline func(string), l logger.Logger) *Prober {
	if l == nil {
		l = logger.NewNop()
	}
	transport := &http.Transport{}
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Prober{
		interval: interval,
		client:   &http.Client{Timeout: 4 * time.Second, Transport: transport},
		onOnline: onOnline,
		log:      l,
	}
}

// Start 启动探测循环，已在运行时返回 false
func (p *Prober) Start(url string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.loop(ctx, url)
	p.log.Info("启动网络恢复探测", "url", url, "interval", p.interval)
	return true
}

// Stop 停止探测循环
func (p *Prober) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Running 返回是否有探测循环在运行
func (p *Prober) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Prober) loop(ctx context.Context, url string) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.check(ctx, url) {
				p.log.Info("网络恢复", "url", url)
				p.Stop()
				if p.onOnline != nil {
					p.onOnline(url)
				}
				return
			}
		}
	}
}

// check 任何完成的 HTTP 响应都视为在线，状态码不参与判断
func (p *Prober) check(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug("探测失败", "url", url, "error", err.Error())
		return false
	}
	resp.Body.Close()
	return true
}
