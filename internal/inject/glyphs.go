package inject

import "fmt"

// glyphSet 返回某个主题与尺寸下三种光标形态的 SVG 片段
func glyphSet(theme string, size int) map[string]string {
	fill, stroke := "#1b1e24", "#ffffff"
	if theme == "light" {
		fill, stroke = "#ffffff", "#1b1e24"
	}
	svg := func(path string) string {
		return fmt.Sprintf(
			`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 24 24">`+
				`<path d="%s" fill="%s" stroke="%s" stroke-width="1.5"/></svg>`,
			size, size, path, fill, stroke)
	}
	return map[string]string{
		"def":     svg("M5 3l14 9-6 1 3 6-3 1-3-6-5 4z"),
		"pointer": svg("M8 3v12l3-3h2l2 5 3-1-2-5h4z"),
		"text":    svg("M9 4h2v16H9zM13 4h2v16h-2zM11 6h2v12h-2z"),
	}
}
