package model

type SessionID string

// NavKind 导航事件类型
type NavKind string

const (
	NavWillNavigate  NavKind = "will-navigate"
	NavWillRedirect  NavKind = "will-redirect"
	NavOpenNewWindow NavKind = "open-new-window"
)

// OverlayState 覆盖层状态，同一时刻最多一个状态覆盖层可见
type OverlayState string

const (
	OverlayNone          OverlayState = "none"
	OverlayLoading       OverlayState = "loading"
	OverlayNetworkError  OverlayState = "network-error"
	OverlayLoadError     OverlayState = "load-error"
	OverlayCrashed       OverlayState = "crashed"
	OverlayUnresponsive  OverlayState = "unresponsive"
	OverlayServiceMenu   OverlayState = "service-menu"
	OverlaySettingsPanel OverlayState = "settings-panel"
)

// Event 控制器产生的运行事件，经通道分发给日志与日志库消费者
type Event struct {
	ID        string    `json:"id"`
	Session   SessionID `json:"session,omitempty"`
	Type      string    `json:"type"`
	URL       string    `json:"url,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

const (
	EventNavigated   = "navigated"
	EventRewritten   = "rewritten"
	EventPopupDenied = "popup_denied"
	EventLoadFailed  = "load_failed"
	EventCrashed     = "crashed"
	EventHang        = "hang"
	EventRecovered   = "recovered"
	EventConfig      = "config_changed"
	EventProbe       = "probe_online"
)
