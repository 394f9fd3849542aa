// Package editor holds the plain-text formatting helpers of the note buffer.
// Formatting is literal marker text; nothing is parsed or rendered.
package editor

// Selection is a textarea selection in code points.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Valid reports whether 0 <= Start <= End <= n.
func (s Selection) Valid(n int) bool {
	return s.Start >= 0 && s.Start <= s.End && s.End <= n
}

// InsertMarker wraps text[start:end] with before and after. Out of range
// selections collapse to the start of the text.
func InsertMarker(text string, start, end int, before, after string) string {
	runes := []rune(text)
	if !(Selection{Start: start, End: end}).Valid(len(runes)) {
		start, end = 0, 0
	}
	return string(runes[:start]) + before + string(runes[start:end]) + after + string(runes[end:])
}

// Length counts characters the way the status bar does.
func Length(text string) int {
	return len([]rune(text))
}
