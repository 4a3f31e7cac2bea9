package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config 守护进程配置文件结构体
type Config struct {
	Version string `yaml:"version"`

	Sqlite struct {
		Dsn    string `yaml:"dsn"`
		Prefix string `yaml:"prefix"`
	} `yaml:"sqlite"`

	Log struct {
		Level  string   `yaml:"level"`
		Writer []string `yaml:"writer"`
		File   string   `yaml:"file"`
	} `yaml:"log"`

	Chrome struct {
		Path         string `yaml:"path"`
		DevToolsPort int    `yaml:"devtoolsPort"`
		UserDataDir  string `yaml:"userDataDir"`
	} `yaml:"chrome"`

	Rewrite struct {
		// InternalPrefixes 命中即改写为主页主机的内网地址前缀
		InternalPrefixes []string `yaml:"internalPrefixes"`
	} `yaml:"rewrite"`

	Health struct {
		ProbeIntervalMS     int `yaml:"probeIntervalMS"`
		HeartbeatIntervalMS int `yaml:"heartbeatIntervalMS"`
		HeartbeatTimeoutMS  int `yaml:"heartbeatTimeoutMS"`
		CrashReloadDelayMS  int `yaml:"crashReloadDelayMS"`
		InjectSettleMS      int `yaml:"injectSettleMS"`
	} `yaml:"health"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	c := &Config{Version: "1.0.0"}
	c.Sqlite.Dsn = "journal.sqlite3"
	c.Sqlite.Prefix = "kioskd_"
	c.Log.Level = "info"
	c.Log.Writer = []string{"console", "file"}
	c.Log.File = "kioskd.log"
	c.Chrome.DevToolsPort = 9222
	c.Rewrite.InternalPrefixes = []string{"10.21."}
	c.Health.ProbeIntervalMS = 5000
	c.Health.HeartbeatIntervalMS = 10000
	c.Health.HeartbeatTimeoutMS = 5000
	c.Health.CrashReloadDelayMS = 3000
	c.Health.InjectSettleMS = 500
	return c
}

// Load 读取配置文件并覆盖默认值，文件不存在时返回默认配置
func Load(path string) (*Config, error) {
	c := NewConfig()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}
