// Package diff turns agent responses into transformations and applies them
// to artifacts.
//
// A response may carry its transformation in one of four shapes, tried in
// this order: SEARCH/REPLACE blocks, a unified diff, a JSON edit list, or a
// fenced code block holding the complete new artifact.
package diff

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Kind identifies the shape a transformation was expressed in.
type Kind string

// Transformation kinds.
const (
	KindNone    Kind = "none"
	KindEdits   Kind = "edits"
	KindPatch   Kind = "patch"
	KindJSON    Kind = "json"
	KindReplace Kind = "replace"
)

// Edit replaces the text Search with Replace.
type Edit struct {
	Search  string `json:"search"`
	Replace string `json:"replace"`
}

// Transform is the change an agent proposed.
type Transform struct {
	Kind Kind

	// Edits is set for KindEdits, KindPatch and KindJSON.
	Edits []Edit

	// Replacement is set for KindReplace.
	Replacement string
}

// Empty reports whether no transformation was found.
func (t Transform) Empty() bool {
	return t.Kind == "" || t.Kind == KindNone
}

//nolint:gochecknoglobals // compiled once
var (
	searchReplaceRe = regexp.MustCompile(`(?s)<{5,7} ?SEARCH[^\n]*\n(.*?)\n?={5,7}\n(.*?)\n?>{5,7} ?REPLACE`)
	fenceRe         = regexp.MustCompile("(?s)```([\\w+#.-]*)[^\\n]*\\n(.*?)```")
	reflectionRe    = regexp.MustCompile(`(?im)^(?:#{1,6}\s*reflections?\b[^\n]*|\**reflections?\**\s*:\**)`)
)

// Block is one fenced code block.
type Block struct {
	Lang string
	Body string
}

// CodeBlocks returns the fenced code blocks of response in order.
func CodeBlocks(response string) []Block {
	matches := fenceRe.FindAllStringSubmatch(response, -1)
	blocks := make([]Block, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, Block{Lang: strings.ToLower(m[1]), Body: strings.TrimSuffix(m[2], "\n")})
	}
	return blocks
}

// Extract finds the transformation in response.
func Extract(response string) Transform {
	if m := searchReplaceRe.FindAllStringSubmatch(response, -1); len(m) > 0 {
		edits := make([]Edit, 0, len(m))
		for _, sm := range m {
			edits = append(edits, Edit{Search: sm[1], Replace: sm[2]})
		}
		return Transform{Kind: KindEdits, Edits: edits}
	}

	blocks := CodeBlocks(response)
	for _, b := range blocks {
		if b.Lang == "diff" || b.Lang == "patch" || looksLikeUnified(b.Body) {
			if edits := parseUnified(b.Body); len(edits) > 0 {
				return Transform{Kind: KindPatch, Edits: edits}
			}
		}
	}
	if len(blocks) == 0 && looksLikeUnified(response) {
		if edits := parseUnified(response); len(edits) > 0 {
			return Transform{Kind: KindPatch, Edits: edits}
		}
	}

	for _, b := range blocks {
		if b.Lang != "json" {
			continue
		}
		if edits, ok := parseJSONEdits(b.Body); ok {
			return Transform{Kind: KindJSON, Edits: edits}
		}
	}

	for _, b := range blocks {
		if b.Lang == "diff" || b.Lang == "patch" || strings.TrimSpace(b.Body) == "" {
			continue
		}
		return Transform{Kind: KindReplace, Replacement: b.Body}
	}
	return Transform{Kind: KindNone}
}

// ExtractReflection returns the agent's commentary. A "Reflection" heading or
// label wins; otherwise it is the prose left after removing code blocks.
func ExtractReflection(response string) string {
	if loc := reflectionRe.FindStringIndex(response); loc != nil {
		if text := strings.TrimSpace(stripCode(response[loc[1]:])); text != "" {
			return text
		}
	}
	return strings.TrimSpace(stripCode(response))
}

func stripCode(s string) string {
	s = searchReplaceRe.ReplaceAllString(s, "")
	return fenceRe.ReplaceAllString(s, "")
}

func looksLikeUnified(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "@@ ") {
			return true
		}
	}
	return false
}

// parseUnified converts each hunk of a unified diff into an edit whose search
// text is the hunk's context and removed lines.
func parseUnified(text string) []Edit {
	var (
		edits           []Edit
		search, replace []string
		inHunk          bool
	)
	flush := func() {
		if inHunk && (len(search) > 0 || len(replace) > 0) {
			search, replace = trimTrailingContext(search, replace)
			edits = append(edits, Edit{Search: strings.Join(search, "\n"), Replace: strings.Join(replace, "\n")})
		}
		search, replace = nil, nil
	}

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			flush()
			inHunk = true
		case !inHunk:
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "diff "):
			flush()
			inHunk = false
		case strings.HasPrefix(line, `\`):
		case strings.HasPrefix(line, "-"):
			search = append(search, line[1:])
		case strings.HasPrefix(line, "+"):
			replace = append(replace, line[1:])
		case strings.HasPrefix(line, " "):
			search = append(search, line[1:])
			replace = append(replace, line[1:])
		default:
			search = append(search, line)
			replace = append(replace, line)
		}
	}
	flush()
	return edits
}

// trimTrailingContext drops blank context lines that a split on the final
// newline leaves at the end of a hunk.
func trimTrailingContext(search, replace []string) ([]string, []string) {
	for len(search) > 0 && len(replace) > 0 &&
		search[len(search)-1] == "" && replace[len(replace)-1] == "" {
		search, replace = search[:len(search)-1], replace[:len(replace)-1]
	}
	return search, replace
}

func parseJSONEdits(body string) ([]Edit, bool) {
	var payload struct {
		Edits []Edit `json:"edits"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(body)
		if rerr != nil {
			return nil, false
		}
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			return nil, false
		}
	}
	if len(payload.Edits) == 0 {
		return nil, false
	}
	return payload.Edits, true
}
