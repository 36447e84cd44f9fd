// Package logging holds zerolog helpers that keep credentials and oversized
// agent payloads out of evo's logs.
package logging

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// RedactedValue replaces any detected secret.
const RedactedValue = "[REDACTED]"

// previewRunes bounds prompt and response previews written at debug level.
const previewRunes = 160

//nolint:gochecknoglobals // compiled once
var sensitivePatterns = []*regexp.Regexp{
	// Anthropic keys
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]+`),
	// OpenAI keys, including project keys
	regexp.MustCompile(`sk-(?:proj-)?[a-zA-Z0-9_-]{20,}`),
	// Google API keys used by the Gemini CLI
	regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`),
	// GitHub tokens used by gh for pull requests
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`github_pat_[a-zA-Z0-9_]{20,}`),
	// key=value style credentials
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)\s*[:=]\s*["']?[^\s"']{8,}["']?`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),
	regexp.MustCompile(`-----BEGIN[A-Z ]+PRIVATE KEY-----`),
}

//nolint:gochecknoglobals // compiled once
var sensitiveFieldNames = []string{
	"api_key", "apikey", "token", "secret", "password", "credential", "private_key", "authorization",
}

// SensitiveDataHook flags log events whose message contains a secret.
// zerolog hooks cannot rewrite the message, so the writer side is covered by
// FilteringWriter and call sites use SafeValue.
type SensitiveDataHook struct{}

// NewSensitiveDataHook returns a SensitiveDataHook.
func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

// Run implements zerolog.Hook.
func (h *SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// ContainsSensitiveData reports whether s matches any secret pattern.
func ContainsSensitiveData(s string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// FilterSensitiveValue replaces every secret in value with RedactedValue.
func FilterSensitiveValue(value string) string {
	for _, p := range sensitivePatterns {
		value = p.ReplaceAllString(value, RedactedValue)
	}
	return value
}

// IsSensitiveFieldName reports whether a field name suggests a secret value.
func IsSensitiveFieldName(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveFieldNames {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// SafeValue returns value suitable for logging under field name.
//
//	logger.Debug().Str("ollama_host", logging.SafeValue("ollama_host", host)).Msg("agent configured")
func SafeValue(name, value string) string {
	if IsSensitiveFieldName(name) {
		return RedactedValue
	}
	return FilterSensitiveValue(value)
}

// Preview returns a filtered, single-line excerpt of an agent prompt or
// response for debug logging.
func Preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > previewRunes {
		s = string([]rune(s)[:previewRunes]) + "…"
	}
	return FilterSensitiveValue(s)
}

// FilteringWriter redacts secrets from everything written through it.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter wraps w.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer. It reports len(p) on success so callers never
// see a short write caused by redaction.
func (fw *FilteringWriter) Write(p []byte) (int, error) {
	if _, err := fw.w.Write([]byte(FilterSensitiveValue(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
