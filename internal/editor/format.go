package editor

import "fmt"

type Format string

const (
	Bold         Format = "bold"
	Italic       Format = "italic"
	Underline    Format = "underline"
	BulletList   Format = "bullet"
	NumberedList Format = "numbered"
)

type markers struct {
	before string
	after  string
}

var formats = map[Format]markers{
	Bold:         {"**", "**"},
	Italic:       {"*", "*"},
	Underline:    {"__", "__"},
	BulletList:   {"\n• ", ""},
	NumberedList: {"\n1. ", ""},
}

// Markers returns the literal text inserted before and after a selection.
func (f Format) Markers() (before, after string, ok bool) {
	m, ok := formats[f]
	return m.before, m.after, ok
}

// Apply inserts the markers of f around sel. The returned selection covers the
// same characters as sel did, shifted past the opening marker.
func Apply(f Format, text string, sel Selection) (string, Selection, error) {
	m, ok := formats[f]
	if !ok {
		return text, sel, fmt.Errorf("unknown format %q", f)
	}
	if !sel.Valid(Length(text)) {
		sel = Selection{}
	}
	shift := Length(m.before)
	out := InsertMarker(text, sel.Start, sel.End, m.before, m.after)
	return out, Selection{Start: sel.Start + shift, End: sel.End + shift}, nil
}

// Key is a key press as reported by the browser.
type Key struct {
	Key  string `json:"key"`
	Ctrl bool   `json:"ctrl"`
	Meta bool   `json:"meta"`
}

// Shortcut maps Ctrl/Cmd+B, +I and +U to their formats.
func Shortcut(k Key) (Format, bool) {
	if !k.Ctrl && !k.Meta {
		return "", false
	}
	switch k.Key {
	case "b":
		return Bold, true
	case "i":
		return Italic, true
	case "u":
		return Underline, true
	}
	return "", false
}
