package roadmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit_MixedMarkers(t *testing.T) {
	steps := Split("1. Learn X\n- Learn Y\n\nLearn Z")

	assert.Equal(t, []string{"1. Learn X", "- Learn Y", "Learn Z"}, steps, "canonical list keeps raw text")
	assert.Len(t, steps, 3)
	assert.Equal(t, []string{"Learn X", "Learn Y", "Learn Z"}, DisplayAll(steps))
}

func TestSplit_CRLFAndWhitespace(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Split("  a \r\n\r\n\t\r\n b"))
	assert.Empty(t, Split(""))
	assert.Empty(t, Split("\n \n"))
}

func TestClean(t *testing.T) {
	in := []string{" Learn SQL ", "", "   ", "Build a dashboard"}
	out := Clean(in)

	assert.Equal(t, []string{"Learn SQL", "Build a dashboard"}, out)
	assert.Equal(t, " Learn SQL ", in[0], "input must not be modified")
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1. Learn SQL", "Learn SQL"},
		{"12) Ship it", "Ship it"},
		{"- [ ] Docker", "Docker"},
		{"* [x] Kubernetes", "Kubernetes"},
		{"• Networking", "Networking"},
		{"Plain step", "Plain step"},
		{"2024 goals review", "2024 goals review"},
		{"-", "-"},
		{"1.", "1."},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Display(tt.in))
		})
	}
}

func TestDisplayAll_DoesNotTouchCanonical(t *testing.T) {
	steps := []string{"1. A", "2. B"}
	_ = DisplayAll(steps)
	assert.Equal(t, []string{"1. A", "2. B"}, steps)
}

func TestPlainText(t *testing.T) {
	src := "## Overview\nA **great** CV is\nconcise.\n\n- [ ] SQL\n- Excel\n"

	got := PlainText(src)

	assert.Equal(t, "Overview\nA great CV is concise.\nSQL\nExcel", got)
}

func TestPlainText_Empty(t *testing.T) {
	assert.Equal(t, "", PlainText("  \n"))
}
