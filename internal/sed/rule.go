package sed

import (
	"regexp"
	"strings"
)

const commandPrefix = "s/"

// Rule is a compiled substitution command.
type Rule struct {
	Pattern  *regexp.Regexp
	Template Template
	Flags    Flags
}

func NewRule(search, replacement, flags string) (*Rule, error) {
	f, err := ParseFlags(flags)
	if err != nil {
		return nil, err
	}
	pattern, err := Compile(search, f)
	if err != nil {
		return nil, err
	}
	return &Rule{
		Pattern:  pattern,
		Template: ParseTemplate(replacement),
		Flags:    f,
	}, nil
}

// ParseCommand finds an "s/search/replacement/flags" command in text. It
// reports ok == false with a nil error when text holds no command. The flags
// segment is optional.
func ParseCommand(text string) (rule *Rule, ok bool, err error) {
	_, rest, found := strings.Cut(text, commandPrefix)
	if !found {
		return nil, false, nil
	}

	search, rest, found := Split(rest)
	if !found {
		return nil, true, ErrMissingQuery
	}

	replacement, flags, found := Split(rest)
	if !found {
		replacement, flags = rest, ""
	}

	rule, err = NewRule(search, replacement, flags)
	if err != nil {
		return nil, true, err
	}
	return rule, true, nil
}

// Apply substitutes the first match in subject, or every non-overlapping
// match from left to right when the g flag is set.
func (r *Rule) Apply(subject string) string {
	limit := 1
	if r.Flags.Global {
		limit = -1
	}

	matches := r.Pattern.FindAllStringSubmatchIndex(subject, limit)
	if len(matches) == 0 {
		return subject
	}

	out := make([]byte, 0, len(subject))
	last := 0
	for _, match := range matches {
		out = append(out, subject[last:match[0]]...)
		out = r.Template.Expand(out, subject, match)
		last = match[1]
	}
	out = append(out, subject[last:]...)
	return string(out)
}

func (r *Rule) String() string {
	return commandPrefix + r.Pattern.String() + "/" + r.Template.String() + "/" + r.Flags.String()
}
