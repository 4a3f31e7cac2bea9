package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kioskd/internal/chrome"
	"kioskd/internal/config"
	"kioskd/internal/kiosk"
	"kioskd/internal/logger"
	"kioskd/internal/settings"
	"kioskd/internal/singleinstance"
	"kioskd/internal/storage"
)

// homeURLFile 开机引导文件，安装器写入初始主页地址
const homeURLFile = "/etc/kioskd/homeurl"

var (
	flagConfig       string
	flagURL          string
	flagDev          bool
	flagInsecure     bool
	flagDevToolsPort int
	flagChromePath   string
	flagUserDataDir  string
)

var rootCmd = &cobra.Command{
	Use:   "kioskd [url]",
	Short: "全屏终端浏览器守护进程",
	Long: "kioskd 启动本地 Chromium 并以终端模式展示单一仪表盘页面，\n" +
		"负责导航策略、故障恢复与页面内操作界面。",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			flagURL = args[0]
		}
		return run()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "配置文件路径")
	rootCmd.Flags().StringVar(&flagURL, "url", "", "主页地址，覆盖持久化配置")
	rootCmd.Flags().BoolVar(&flagDev, "dev", false, "开发模式：窗口化运行，不拦截快捷键")
	rootCmd.Flags().BoolVar(&flagInsecure, "insecure", false, "接受无效 TLS 证书")
	rootCmd.Flags().IntVar(&flagDevToolsPort, "devtools-port", 0, "DevTools 端口，覆盖配置文件")
	rootCmd.Flags().StringVar(&flagChromePath, "chrome-path", "", "浏览器可执行文件路径")
	rootCmd.Flags().StringVar(&flagUserDataDir, "user-data-dir", "", "浏览器用户数据目录")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagDevToolsPort != 0 {
		cfg.Chrome.DevToolsPort = flagDevToolsPort
	}
	if flagChromePath != "" {
		cfg.Chrome.Path = flagChromePath
	}
	if flagUserDataDir != "" {
		cfg.Chrome.UserDataDir = flagUserDataDir
	}

	l := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Writers: cfg.Log.Writer,
		File:    cfg.Log.File,
	})

	// 单实例锁：第二个实例只把运行中的窗口带回前台
	var mgr *kiosk.Manager
	lock, err := singleinstance.Acquire(singleinstance.DefaultSocketPath(), func() {
		if mgr != nil {
			mgr.Focus()
		}
	}, l)
	if err != nil {
		if err == singleinstance.ErrAlreadyRunning {
			l.Info("已有实例在运行，本次启动退出")
			return nil
		}
		return err
	}
	defer lock.Release()

	primary, fallback := settings.DefaultPaths()
	store := settings.Open(primary, fallback, l)
	defer store.Close()

	targetURL := resolveHomeURL(store, l)

	journal, err := storage.OpenJournal(cfg.Sqlite.Dsn, cfg.Sqlite.Prefix, l)
	if err != nil {
		l.Err(err, "事件日志库不可用，运行事件不落盘")
		journal = nil
	} else {
		defer journal.Close()
	}

	browser, err := chrome.Launch(chrome.Options{
		Path:         cfg.Chrome.Path,
		DevToolsPort: cfg.Chrome.DevToolsPort,
		UserDataDir:  cfg.Chrome.UserDataDir,
		Dev:          flagDev,
		Insecure:     flagInsecure,
	}, l)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer browser.Stop(5 * time.Second)

	mgr, err = kiosk.New(cfg, kiosk.Options{
		DevToolsURL: browser.DevToolsURL,
		TargetURL:   targetURL,
		Dev:         flagDev,
		Insecure:    flagInsecure,
	}, store, journal, l)
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := mgr.Attach(ctx); err != nil {
		return fmt.Errorf("attach devtools: %w", err)
	}
	defer mgr.Detach()
	if err := mgr.Enable(); err != nil {
		return fmt.Errorf("enable controller: %w", err)
	}

	if journal != nil {
		go journal.Consume(mgr.Events())
	}
	if err := store.Watch(mgr.NotifySettings); err != nil {
		l.Err(err, "配置文件监听不可用")
	}

	// 浏览器进程退出时结束控制循环
	go func() {
		_ = browser.Wait()
		l.Info("浏览器进程退出")
		cancel()
	}()

	l.Info("kioskd 启动完成", "url", targetURL, "dev", flagDev)
	if err := mgr.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	l.Info("kioskd 退出")
	return nil
}

// resolveHomeURL 决定主页地址：命令行参数优先，其次持久化配置，
// 再次开机引导文件，最后内置默认值。参数与引导文件的取值写回配置存储。
func resolveHomeURL(store *settings.Store, l logger.Logger) string {
	if flagURL != "" {
		if !store.Set("homeUrl", flagURL) {
			l.Warn("命令行主页地址未通过校验", "url", flagURL)
		}
		return flagURL
	}
	cfg := store.All()
	if data, err := os.ReadFile(homeURLFile); err == nil {
		if u := strings.TrimSpace(string(data)); u != "" && u != cfg.HomeURL {
			if store.Set("homeUrl", u) {
				l.Info("采用引导文件主页地址", "url", u)
				return u
			}
		}
	}
	return cfg.HomeURL
}
