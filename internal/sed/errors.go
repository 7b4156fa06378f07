package sed

import (
	"errors"
	"fmt"
)

var ErrMissingQuery = errors.New("missing query regex in rule")

type UnrecognizedFlagError struct {
	Flag rune
}

func (e *UnrecognizedFlagError) Error() string {
	return fmt.Sprintf("%q is an unrecognized flag", e.Flag)
}

type DuplicatedFlagError struct {
	Flag rune
}

func (e *DuplicatedFlagError) Error() string {
	return fmt.Sprintf("%q flag is duplicated", e.Flag)
}

// InvalidRegexError wraps the regex engine's diagnostic.
type InvalidRegexError struct {
	Err error
}

func (e *InvalidRegexError) Error() string {
	return fmt.Sprintf("invalid query regex: %v", e.Err)
}

func (e *InvalidRegexError) Unwrap() error {
	return e.Err
}
