package kiosk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/mafredri/cdp/protocol/network"
	"github.com/mafredri/cdp/protocol/page"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/mafredri/cdp/protocol/security"
	"github.com/mafredri/cdp/protocol/target"
	"github.com/mafredri/cdp/rpcc"

	"kioskd/internal/config"
	"kioskd/internal/inject"
	"kioskd/internal/logger"
	"kioskd/internal/overlay"
	"kioskd/internal/policy"
	"kioskd/internal/probe"
	"kioskd/internal/session"
	"kioskd/internal/settings"
	"kioskd/internal/storage"
	"kioskd/pkg/model"
)

const bindingName = "__kioskdHost"

// Options 控制器运行选项
type Options struct {
	DevToolsURL string
	TargetURL   string
	Dev         bool
	Insecure    bool
}

// Manager 导航与恢复控制器。持有唯一窗口会话，消费内容引擎的
// 事件流，驱动策略引擎、故障状态机与页面注入器。
// 所有状态变更都发生在 Run 的控制循环 goroutine 中。
type Manager struct {
	cfg   *config.Config
	opts  Options
	log   logger.Logger
	store *settings.Store

	sess     *session.Session
	engine   *policy.Engine
	machine  *overlay.Machine
	injector *inject.Injector
	prober   *probe.Prober
	journal  *storage.Journal

	conn      *rpcc.Conn
	client    *cdp.Client
	ctx       context.Context
	cancel    context.CancelFunc
	ctrl      chan ctrlEvent
	events    chan model.Event
	mainFrame page.FrameID
	mainDocs  docRequests
	targetID  target.ID

	dockVisible bool
}

// New 创建控制器
func New(cfg *config.Config, opts Options, store *settings.Store, journal *storage.Journal, l logger.Logger) (*Manager, error) {
	if l == nil {
		l = logger.NewNop()
	}
	engine, err := policy.New(opts.TargetURL, cfg.Rewrite.InternalPrefixes)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:         cfg,
		opts:        opts,
		log:         l,
		store:       store,
		engine:      engine,
		machine:     overlay.New(l),
		journal:     journal,
		ctrl:        make(chan ctrlEvent, 256),
		events:      make(chan model.Event, 256),
		dockVisible: true,
	}
	m.sess = session.New(opts.TargetURL, l)
	m.prober = probe.New(time.Duration(cfg.Health.ProbeIntervalMS)*time.Millisecond, opts.Insecure, func(url string) {
		m.post(ctrlEvent{kind: evProbeOnline, url: url})
	}, l)
	return m, nil
}

// Events 返回运行事件通道，供日志库等消费者订阅
func (m *Manager) Events() <-chan model.Event { return m.events }

// NotifySettings 配置文件热加载后把新配置投递到控制循环
func (m *Manager) NotifySettings(cfg model.Settings) {
	m.post(ctrlEvent{kind: evSettingsChanged, settings: &cfg})
}

// Focus 请求夺回前台，由单实例锁在二次启动时触发
func (m *Manager) Focus() {
	m.post(ctrlEvent{kind: evFocusRequest})
}

// Attach 连接 DevTools 端点并附加到页面目标
func (m *Manager) Attach(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)
	dt := devtool.New(m.opts.DevToolsURL)
	t, err := dt.Get(m.ctx, devtool.Page)
	if err != nil {
		t, err = dt.Create(m.ctx)
		if err != nil {
			return fmt.Errorf("no page target: %w", err)
		}
	}
	conn, err := rpcc.DialContext(m.ctx, t.WebSocketDebuggerURL)
	if err != nil {
		return fmt.Errorf("dial devtools: %w", err)
	}
	m.conn = conn
	m.client = cdp.NewClient(conn)
	m.targetID = target.ID(t.ID)
	m.injector = inject.New(&cdpEvaluator{client: m.client}, m.log)
	m.log.Info("已附加页面目标", "target", t.ID, "url", t.URL)
	return nil
}

// Enable 启用协议域、安装桥接脚本并开始消费事件流
func (m *Manager) Enable() error {
	if m.client == nil {
		return fmt.Errorf("not attached")
	}
	ctx := m.ctx
	if err := m.client.Page.Enable(ctx); err != nil {
		return fmt.Errorf("enable page domain: %w", err)
	}
	if err := m.client.Runtime.Enable(ctx); err != nil {
		return fmt.Errorf("enable runtime domain: %w", err)
	}
	if err := m.client.Network.Enable(ctx, nil); err != nil {
		return fmt.Errorf("enable network domain: %w", err)
	}
	if err := m.client.Inspector.Enable(ctx); err != nil {
		return fmt.Errorf("enable inspector domain: %w", err)
	}
	if m.opts.Insecure {
		err := m.client.Security.SetIgnoreCertificateErrors(ctx, security.NewSetIgnoreCertificateErrorsArgs(true))
		if err != nil {
			m.log.Err(err, "忽略证书错误设置失败")
		}
	}
	if err := m.client.Target.SetDiscoverTargets(ctx, target.NewSetDiscoverTargetsArgs(true)); err != nil {
		m.log.Err(err, "目标发现开启失败")
	}

	// 桥接脚本安装到每个新文档，本地错误页同样可用
	shimArgs := page.NewAddScriptToEvaluateOnNewDocumentArgs(inject.BridgeShim())
	if _, err := m.client.Page.AddScriptToEvaluateOnNewDocument(ctx, shimArgs); err != nil {
		return fmt.Errorf("install bridge shim: %w", err)
	}
	if err := m.client.Runtime.AddBinding(ctx, runtime.NewAddBindingArgs(bindingName)); err != nil {
		return fmt.Errorf("add binding: %w", err)
	}

	// 仅拦截顶层文档请求，用于重定向提交前的地址改写
	pattern := "*"
	docType := network.ResourceTypeDocument
	err := m.client.Fetch.Enable(ctx, &fetch.EnableArgs{Patterns: []fetch.RequestPattern{
		{URLPattern: &pattern, ResourceType: &docType, RequestStage: fetch.RequestStageRequest},
	}})
	if err != nil {
		return fmt.Errorf("enable fetch domain: %w", err)
	}

	// 主框架 ID 必须在消费者启动前确定，此后只读
	tree, err := m.client.Page.GetFrameTree(ctx)
	if err != nil {
		return fmt.Errorf("get frame tree: %w", err)
	}
	m.mainFrame = tree.FrameTree.Frame.ID

	m.startConsumers()
	go m.heartbeat()
	return nil
}

// Run 执行控制循环：先展示加载页，再发起主页导航，随后处理事件直到退出
func (m *Manager) Run() error {
	if err := m.navigate(inject.LoadingPageURL()); err != nil {
		m.log.Err(err, "加载页导航失败")
	}
	m.enforceWindowState()
	if err := m.navigate(m.sess.TargetURL()); err != nil {
		m.log.Err(err, "主页导航失败")
	}

	for {
		select {
		case <-m.ctx.Done():
			return m.ctx.Err()
		case ev := <-m.ctrl:
			m.dispatch(ev)
		}
	}
}

// Detach 断开连接并停止所有后台工作。事件通道不关闭，
// 消费者随进程退出终结。
func (m *Manager) Detach() error {
	m.prober.Stop()
	if m.cancel != nil {
		m.cancel()
	}
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}

// post 从任意 goroutine 投递事件到控制循环
func (m *Manager) post(ev ctrlEvent) {
	select {
	case m.ctrl <- ev:
	case <-m.ctx.Done():
	}
}

// emit 向外部事件通道发布运行事件，通道满时丢弃
func (m *Manager) emit(typ, url, detail string) {
	ev := model.Event{
		ID:        uuid.NewString(),
		Session:   m.sess.ID(),
		Type:      typ,
		URL:       url,
		Detail:    detail,
		Timestamp: time.Now().UnixMilli(),
	}
	select {
	case m.events <- ev:
	default:
	}
}

// navigate 发起一次顶层导航
func (m *Manager) navigate(url string) error {
	reply, err := m.client.Page.Navigate(m.ctx, page.NewNavigateArgs(url))
	if err != nil {
		return err
	}
	if reply.ErrorText != nil && *reply.ErrorText != "" {
		m.post(ctrlEvent{kind: evLoadFailed, url: url, detail: *reply.ErrorText})
	}
	return nil
}

// reload 重新加载当前页面
func (m *Manager) reload(ignoreCache bool) {
	args := page.NewReloadArgs()
	if ignoreCache {
		args.SetIgnoreCache(true)
	}
	if err := m.client.Page.Reload(m.ctx, args); err != nil {
		m.log.Err(err, "页面重载失败")
	}
}

// enforceWindowState 非 dev 模式下强制全屏
func (m *Manager) enforceWindowState() {
	if m.opts.Dev {
		return
	}
	fullscreenWindow(m.ctx, m.client, m.targetID, m.log)
}

// settle 在注入沉降延迟后把动作投回控制循环
func (m *Manager) settle(kind ctrlKind) {
	delay := time.Duration(m.cfg.Health.InjectSettleMS) * time.Millisecond
	time.AfterFunc(delay, func() {
		m.post(ctrlEvent{kind: kind})
	})
}
