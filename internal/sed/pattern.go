package sed

import (
	"errors"
	"regexp"
	"regexp/syntax"
	"strings"
	"unicode"
)

var errOctalDisabled = errors.New("octal escapes are disabled, use the o flag to enable them")

// Compile builds the search expression under the options selected by f.
// The pattern is validated with regexp/syntax first so diagnostics refer to
// the user's text rather than the inline flag prefix.
func Compile(pattern string, f Flags) (*regexp.Regexp, error) {
	if f.IgnoreWhitespace {
		pattern = stripWhitespace(pattern)
	}
	if !f.Octal && hasDigitEscape(pattern) {
		return nil, &InvalidRegexError{Err: errOctalDisabled}
	}
	if _, err := syntax.Parse(pattern, f.syntaxFlags()); err != nil {
		return nil, &InvalidRegexError{Err: err}
	}
	re, err := regexp.Compile(f.inlineFlags() + pattern)
	if err != nil {
		return nil, &InvalidRegexError{Err: err}
	}
	return re, nil
}

func (f Flags) syntaxFlags() syntax.Flags {
	flags := syntax.Perl
	if f.CaseInsensitive {
		flags |= syntax.FoldCase
	}
	if f.MultiLine {
		flags &^= syntax.OneLine
	}
	if f.DotMatchesNewLine {
		flags |= syntax.DotNL
	}
	if f.SwapGreed {
		flags |= syntax.NonGreedy
	}
	return flags
}

// hasDigitEscape reports an unescaped backslash followed by a digit.
func hasDigitEscape(pattern string) bool {
	escaped := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if escaped {
			if c >= '0' && c <= '9' {
				return true
			}
			escaped = false
			continue
		}
		escaped = c == escape
	}
	return false
}

// stripWhitespace implements free-spacing mode: unescaped whitespace and
// '#' comments are dropped everywhere, character classes included.
func stripWhitespace(pattern string) string {
	var sb strings.Builder
	sb.Grow(len(pattern))

	escaped, comment := false, false
	for _, c := range pattern {
		switch {
		case comment:
			if c == '\n' {
				comment = false
			}
		case escaped:
			sb.WriteRune(c)
			escaped = false
		case c == escape:
			sb.WriteRune(c)
			escaped = true
		case unicode.IsSpace(c):
		case c == '#':
			comment = true
		default:
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
