package sed

import "strings"

// Flags holds one switch per recognized flag letter.
type Flags struct {
	CaseInsensitive   bool // i
	MultiLine         bool // m
	DotMatchesNewLine bool // s
	SwapGreed         bool // U
	IgnoreWhitespace  bool // x
	Octal             bool // o
	Global            bool // g
}

func ParseFlags(s string) (Flags, error) {
	var f Flags
	for _, c := range s {
		var field *bool
		switch c {
		case 'i':
			field = &f.CaseInsensitive
		case 'm':
			field = &f.MultiLine
		case 's':
			field = &f.DotMatchesNewLine
		case 'U':
			field = &f.SwapGreed
		case 'x':
			field = &f.IgnoreWhitespace
		case 'o':
			field = &f.Octal
		case 'g':
			field = &f.Global
		default:
			return Flags{}, &UnrecognizedFlagError{Flag: c}
		}
		if *field {
			return Flags{}, &DuplicatedFlagError{Flag: c}
		}
		*field = true
	}
	return f, nil
}

func (f Flags) String() string {
	var sb strings.Builder
	for _, flag := range []struct {
		set    bool
		letter byte
	}{
		{f.CaseInsensitive, 'i'},
		{f.MultiLine, 'm'},
		{f.DotMatchesNewLine, 's'},
		{f.SwapGreed, 'U'},
		{f.IgnoreWhitespace, 'x'},
		{f.Octal, 'o'},
		{f.Global, 'g'},
	} {
		if flag.set {
			sb.WriteByte(flag.letter)
		}
	}
	return sb.String()
}

// inlineFlags returns the "(?imsU)" group for the regex compilation options.
func (f Flags) inlineFlags() string {
	var sb strings.Builder
	if f.CaseInsensitive {
		sb.WriteByte('i')
	}
	if f.MultiLine {
		sb.WriteByte('m')
	}
	if f.DotMatchesNewLine {
		sb.WriteByte('s')
	}
	if f.SwapGreed {
		sb.WriteByte('U')
	}
	if sb.Len() == 0 {
		return ""
	}
	return "(?" + sb.String() + ")"
}
