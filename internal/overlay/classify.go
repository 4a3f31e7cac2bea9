package overlay

import "strings"

// networkErrors 视为「网络不可达」的加载错误码，触发后台恢复探测。
// 其余加载失败只提供手动重试。
var networkErrors = map[string]struct{}{
	"net::ERR_CONNECTION_REFUSED":      {},
	"net::ERR_CONNECTION_RESET":        {},
	"net::ERR_CONNECTION_CLOSED":       {},
	"net::ERR_CONNECTION_ABORTED":      {},
	"net::ERR_CONNECTION_TIMED_OUT":    {},
	"net::ERR_TIMED_OUT":               {},
	"net::ERR_NAME_NOT_RESOLVED":       {},
	"net::ERR_INTERNET_DISCONNECTED":   {},
	"net::ERR_ADDRESS_UNREACHABLE":     {},
	"net::ERR_NETWORK_CHANGED":         {},
	"net::ERR_PROXY_CONNECTION_FAILED": {},
}

// ClassifyFailure 将内容引擎报告的错误码映射为状态机事件
func ClassifyFailure(errorText string) Event {
	code := strings.TrimSpace(errorText)
	if _, ok := networkErrors[code]; ok {
		return EventNetworkFailure
	}
	return EventLoadFailure
}
