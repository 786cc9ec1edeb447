// Package roadmap normalizes generated roadmaps.
//
// Two representations are kept apart: the canonical step list (trimmed,
// non-empty raw lines, indexed for completion tracking) and the display
// text of each step (enumeration and checkbox markers removed). Display
// cleaning never rewrites the canonical list.
package roadmap

import (
	"regexp"
	"strings"
)

// markerRe matches leading list decoration: bullets, markdown checkboxes
// and ordinal numbers, in any combination ("- [ ] ", "1. ", "2) ", "* ").
var markerRe = regexp.MustCompile(`^(?:(?:[-*+•]|\d+[.)]|\[[ xX]\])\s+)+`)

// Split turns newline-delimited roadmap text into the canonical step list.
func Split(text string) []string {
	return Clean(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"))
}

// Clean trims every step and drops blank ones, preserving order.
func Clean(steps []string) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Display returns the step as shown to the user.
func Display(step string) string {
	s := strings.TrimSpace(step)
	if d := strings.TrimSpace(markerRe.ReplaceAllString(s, "")); d != "" {
		return d
	}
	return s
}

// DisplayAll maps Display over steps into a new slice.
func DisplayAll(steps []string) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = Display(s)
	}
	return out
}
