package model

// Settings 终端外观与主页配置，持久化为 JSON 文档
type Settings struct {
	CursorTheme  string `json:"cursorTheme"`
	CursorSize   string `json:"cursorSize"`
	DockPosition string `json:"dockPosition"`
	DockSize     string `json:"dockSize"`
	HomeURL      string `json:"homeUrl"`
}

const (
	CursorThemeDark   = "dark"
	CursorThemeLight  = "light"
	CursorThemeSystem = "system"
)

var (
	CursorSizes   = []string{"small", "medium", "large", "xlarge"}
	DockPositions = []string{"bottom-right", "bottom-left", "top-right", "top-left", "center-right", "center-left"}
	DockSizes     = []string{"small", "medium", "large"}
	CursorThemes  = []string{CursorThemeDark, CursorThemeLight, CursorThemeSystem}
)

// DefaultSettings 返回默认配置
func DefaultSettings() Settings {
	return Settings{
		CursorTheme:  CursorThemeDark,
		CursorSize:   "medium",
		DockPosition: "bottom-right",
		DockSize:     "medium",
		HomeURL:      "http://umbrel.local",
	}
}

// ValidValue 校验某个配置键的取值是否合法，未知键返回 false
func ValidValue(key, value string) bool {
	switch key {
	case "cursorTheme":
		return contains(CursorThemes, value)
	case "cursorSize":
		return contains(CursorSizes, value)
	case "dockPosition":
		return contains(DockPositions, value)
	case "dockSize":
		return contains(DockSizes, value)
	case "homeUrl":
		return value != ""
	default:
		return false
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
