package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Stats counts changed lines between two versions of an artifact.
type Stats struct {
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
}

// String formats the stats as "+N -M".
func (s Stats) String() string {
	if s.Added == 0 && s.Deleted == 0 {
		return "no changes"
	}
	return fmt.Sprintf("+%d -%d", s.Added, s.Deleted)
}

// Compare returns line statistics for the change from before to after.
func Compare(before, after string) Stats {
	var s Stats
	for _, d := range lineDiffs(before, after) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			s.Added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			s.Deleted += countLines(d.Text)
		case diffmatchpatch.DiffEqual:
		}
	}
	return s
}

// Unified renders a line-based diff of before and after with file headers.
// Colour is applied only when colored is true.
func Unified(before, after, name string, colored bool) string {
	if before == after {
		return ""
	}
	paint := func(attr color.Attribute, s string) string {
		if !colored {
			return s
		}
		return color.New(attr).Sprint(s)
	}

	var b strings.Builder
	b.WriteString(paint(color.FgRed, "--- a/"+name) + "\n")
	b.WriteString(paint(color.FgGreen, "+++ b/"+name) + "\n")
	for _, d := range lineDiffs(before, after) {
		prefix, attr := " ", color.Reset
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix, attr = "+", color.FgGreen
		case diffmatchpatch.DiffDelete:
			prefix, attr = "-", color.FgRed
		case diffmatchpatch.DiffEqual:
		}
		for _, line := range splitLines(d.Text) {
			if attr == color.Reset {
				b.WriteString(prefix + line + "\n")
				continue
			}
			b.WriteString(paint(attr, prefix+line) + "\n")
		}
	}
	return b.String()
}

func lineDiffs(before, after string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	return dmp.DiffCharsToLines(diffs, lines)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func countLines(s string) int {
	return len(splitLines(s))
}
