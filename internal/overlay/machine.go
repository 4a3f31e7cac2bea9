package overlay

import (
	"kioskd/internal/logger"
	"kioskd/pkg/model"
)

// State 故障覆盖层状态机的状态
type State string

const (
	StateLoading      State = "loading"
	StateReady        State = "ready"
	StateNetworkError State = "network-error"
	StateLoadError    State = "load-error"
	StateCrashed      State = "crashed"
	StateUnresponsive State = "unresponsive"
)

// Event 驱动状态机的事件
type Event string

const (
	EventCommitted      Event = "committed"
	EventNetworkFailure Event = "network-failure"
	EventLoadFailure    Event = "load-failure"
	EventCrash          Event = "crash"
	EventHang           Event = "hang"
	EventResponsive     Event = "responsive"
	EventProbeOnline    Event = "probe-online"
	EventRetry          Event = "retry"
)

// transitions 以 (当前状态, 事件) 为键的状态迁移表
var transitions = map[State]map[Event]State{
	StateLoading: {
		EventCommitted:      StateReady,
		EventNetworkFailure: StateNetworkError,
		EventLoadFailure:    StateLoadError,
		EventCrash:          StateCrashed,
	},
	StateReady: {
		EventCommitted:      StateReady,
		EventNetworkFailure: StateNetworkError,
		EventLoadFailure:    StateLoadError,
		EventCrash:          StateCrashed,
		EventHang:           StateUnresponsive,
	},
	StateNetworkError: {
		EventCommitted:      StateReady,
		EventProbeOnline:    StateReady,
		EventRetry:          StateLoading,
		EventNetworkFailure: StateNetworkError,
		EventLoadFailure:    StateLoadError,
		EventCrash:          StateCrashed,
	},
	StateLoadError: {
		EventCommitted:      StateReady,
		EventRetry:          StateLoading,
		EventNetworkFailure: StateNetworkError,
		EventLoadFailure:    StateLoadError,
		EventCrash:          StateCrashed,
	},
	StateCrashed: {
		EventCommitted:      StateReady,
		EventNetworkFailure: StateNetworkError,
		EventLoadFailure:    StateLoadError,
		EventCrash:          StateCrashed,
	},
	StateUnresponsive: {
		EventResponsive:     StateReady,
		EventCommitted:      StateReady,
		EventCrash:          StateCrashed,
		EventNetworkFailure: StateNetworkError,
		EventLoadFailure:    StateLoadError,
	},
}

// Machine 故障覆盖层状态机，进程生命周期内运行，无终止状态。
// 仅在控制循环 goroutine 中访问。
type Machine struct {
	state State
	log   logger.Logger
}

// New 创建状态机，初始状态为 Loading
func New(l logger.Logger) *Machine {
	if l == nil {
		l = logger.NewNop()
	}
	return &Machine{state: StateLoading, log: l}
}

func (m *Machine) State() State { return m.state }

// Apply 按迁移表推进状态机，返回新状态与是否发生迁移。
// 表中没有的 (状态, 事件) 组合被忽略。
func (m *Machine) Apply(ev Event) (State, bool) {
	next, ok := transitions[m.state][ev]
	if !ok {
		m.log.Debug("忽略无效迁移", "state", string(m.state), "event", string(ev))
		return m.state, false
	}
	if next == m.state {
		return m.state, false
	}
	m.log.Info("状态迁移", "from", string(m.state), "event", string(ev), "to", string(next))
	m.state = next
	return next, true
}

// OverlayFor 将状态机状态映射为页面覆盖层
func OverlayFor(s State) model.OverlayState {
	switch s {
	case StateLoading:
		return model.OverlayLoading
	case StateNetworkError:
		return model.OverlayNetworkError
	case StateLoadError:
		return model.OverlayLoadError
	case StateCrashed:
		return model.OverlayCrashed
	case StateUnresponsive:
		return model.OverlayUnresponsive
	default:
		return model.OverlayNone
	}
}
