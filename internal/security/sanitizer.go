package security

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

const redacted = "***REDACTED***"

// Sanitizer scrubs bot credentials from text that leaves the process:
// log lines and journaled error messages. Transport errors from the Bot API
// embed the request URL, and with it the token.
type Sanitizer struct {
	secrets  []string
	patterns []*regexp.Regexp
}

// NewSanitizer redacts every literal secret and every match of patterns.
// Empty secrets are ignored.
func NewSanitizer(secrets []string, patterns []string) (*Sanitizer, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid security pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}

	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			kept = append(kept, s)
		}
	}

	return &Sanitizer{
		secrets:  kept,
		patterns: compiled,
	}, nil
}

func (s *Sanitizer) Sanitize(text string) string {
	result := text
	changed := false

	for _, secret := range s.secrets {
		if strings.Contains(result, secret) {
			result = strings.ReplaceAll(result, secret, redacted)
			changed = true
		}
	}

	for _, pattern := range s.patterns {
		if pattern.MatchString(result) {
			result = pattern.ReplaceAllString(result, redacted)
			changed = true
		}
	}

	if changed {
		slog.Debug("Security: Redacted credentials from output")
	}

	return result
}

// Error renders err sanitized. A nil error renders as "".
func (s *Sanitizer) Error(err error) string {
	if err == nil {
		return ""
	}
	return s.Sanitize(err.Error())
}

var DefaultPatterns = []string{
	// Telegram bot tokens: <bot id>:<35 char secret>
	`\d{6,}:[A-Za-z0-9_-]{30,}`,
	`token[s]?\s*[:=]\s*["']?([^"'\s]+)`,
}
