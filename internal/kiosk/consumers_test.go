package kiosk

import (
	"testing"

	"github.com/mafredri/cdp/protocol/network"
	"github.com/stretchr/testify/assert"
)

func TestMainDocTrackingIgnoresSubframes(t *testing.T) {
	var d docRequests

	assert.False(t, d.take(network.RequestID("r1")))

	// 主框架文档请求被标记，iframe 的请求没有
	d.mark(network.RequestID("main-1"))
	assert.False(t, d.take(network.RequestID("iframe-1")))
	assert.True(t, d.take(network.RequestID("main-1")))

	// 同一请求的失败只投递一次
	assert.False(t, d.take(network.RequestID("main-1")))
}

func TestMainDocTrackingKeepsLatestRequest(t *testing.T) {
	var d docRequests

	d.mark(network.RequestID("main-1"))
	d.mark(network.RequestID("main-2"))

	assert.False(t, d.take(network.RequestID("main-1")))
	assert.True(t, d.take(network.RequestID("main-2")))
}
