package domain

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Next returns the theme that follows t in the light, dark, system cycle.
// Anything unknown restarts the cycle at light.
func (t Theme) Next() Theme {
	switch t {
	case ThemeLight:
		return ThemeDark
	case ThemeDark:
		return ThemeSystem
	default:
		return ThemeLight
	}
}

// Icon names the header icon for the theme toggle.
func (t Theme) Icon() string {
	switch t {
	case ThemeLight:
		return "sun"
	case ThemeDark:
		return "moon"
	default:
		return "monitor"
	}
}

func ParseTheme(s string) (Theme, bool) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, true
	}
	return ThemeSystem, false
}
