package sanitize

import (
	"fmt"
	"regexp"

	"github.com/isdmx/codebridge/config"
)

// DefaultReplacement is the marker substituted for stripped content
const DefaultReplacement = "[redacted]"

// builtinPatterns cover the two classes of sensitive content that leak
// into error messages and stack traces: absolute filesystem paths and
// credential-like tokens.
var builtinPatterns = []*regexp.Regexp{
	// Absolute unix paths under directories that encode usernames or
	// host layout.
	regexp.MustCompile(`(?:/(?:home|Users|root|tmp|var|etc|opt|private)/[^\s"']*)`),
	// Windows drive paths.
	regexp.MustCompile(`[A-Za-z]:\\[^\s"']+`),
	// Bearer tokens and basic credentials in header-ish text.
	regexp.MustCompile(`(?i)(?:bearer|basic)\s+[A-Za-z0-9._~+/=-]{8,}`),
	// Common API key shapes.
	regexp.MustCompile(`\b(?:sk|pk|ghp|gho|xoxb|xoxp)[-_][A-Za-z0-9_-]{8,}\b`),
	// key=value / key: value assignments for credential-like keys.
	regexp.MustCompile(`(?i)\b(?:token|password|passwd|secret|api[_-]?key|access[_-]?key|credential|authorization)\b\s*[=:]\s*\S+`),
}

// Sanitizer strips sensitive substrings from messages and stack traces
// before they leave the process. Pure; safe for concurrent use.
type Sanitizer struct {
	patterns    []*regexp.Regexp
	replacement string
}

// SanitizerOption defines a functional option for Sanitizer
type SanitizerOption func(*Sanitizer)

// WithReplacement sets the marker substituted for stripped content
func WithReplacement(marker string) SanitizerOption {
	return func(s *Sanitizer) {
		s.replacement = marker
	}
}

// WithPatterns appends extra patterns to the built-in set
func WithPatterns(patterns ...*regexp.Regexp) SanitizerOption {
	return func(s *Sanitizer) {
		s.patterns = append(s.patterns, patterns...)
	}
}

// New creates a sanitizer with the built-in pattern set
func New(opts ...SanitizerOption) *Sanitizer {
	s := &Sanitizer{
		patterns:    builtinPatterns,
		replacement: DefaultReplacement,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig creates a sanitizer extended with configured patterns
func NewFromConfig(cfg *config.Config) (*Sanitizer, error) {
	opts := []SanitizerOption{}
	if cfg.Sanitizer.Replacement != "" {
		opts = append(opts, WithReplacement(cfg.Sanitizer.Replacement))
	}
	for _, p := range cfg.Sanitizer.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid sanitizer pattern %q: %w", p, err)
		}
		opts = append(opts, WithPatterns(re))
	}
	return New(opts...), nil
}

// Clean returns s with every sensitive match replaced by the marker
func (s *Sanitizer) Clean(text string) string {
	for _, re := range s.patterns {
		text = re.ReplaceAllString(text, s.replacement)
	}
	return text
}
