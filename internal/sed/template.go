package sed

import (
	"strconv"
	"strings"
)

// Node is one piece of a replacement template: either literal text or a
// capture group reference.
type Node struct {
	Text  string
	Group int
	IsRef bool
}

func Literal(text string) Node {
	return Node{Text: text}
}

func Ref(group int) Node {
	return Node{Group: group, IsRef: true}
}

type Template []Node

// maxGroup bounds parsed group numbers. Larger references name a group that
// cannot exist and expand to nothing.
const maxGroup = 1 << 16

// ParseTemplate reads $N, ${N} and \N as group references. $$, \\ and \/
// produce the literal character, \n and \t produce newline and tab. Anything
// else is copied as is.
func ParseTemplate(s string) Template {
	var (
		nodes Template
		text  strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, Literal(text.String()))
			text.Reset()
		}
	}
	ref := func(group int) {
		flush()
		nodes = append(nodes, Ref(group))
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if i+1 >= len(s) || (c != '$' && c != escape) {
			text.WriteByte(c)
			continue
		}
		next := s[i+1]

		if n, width := leadingNumber(s[i+1:]); width > 0 {
			ref(n)
			i += width
			continue
		}

		if c == '$' {
			switch {
			case next == '$':
				text.WriteByte('$')
				i++
			case next == '{':
				end := strings.IndexByte(s[i+2:], '}')
				if end < 0 {
					text.WriteByte(c)
					continue
				}
				digits := s[i+2 : i+2+end]
				n, width := leadingNumber(digits)
				if width == 0 || width != len(digits) {
					text.WriteByte(c)
					continue
				}
				ref(n)
				i += end + 2
			default:
				text.WriteByte(c)
			}
			continue
		}

		switch next {
		case escape, delimiter:
			text.WriteByte(next)
		case 'n':
			text.WriteByte('\n')
		case 't':
			text.WriteByte('\t')
		default:
			text.WriteByte(c)
			text.WriteByte(next)
		}
		i++
	}
	flush()
	return nodes
}

func leadingNumber(s string) (int, int) {
	width := 0
	for width < len(s) && s[width] >= '0' && s[width] <= '9' {
		width++
	}
	if width == 0 {
		return 0, 0
	}
	n, err := strconv.Atoi(s[:width])
	if err != nil || n > maxGroup {
		n = maxGroup
	}
	return n, width
}

// Expand appends the rendering of t for one match to dst. match holds the
// submatch index pairs as returned by FindStringSubmatchIndex.
func (t Template) Expand(dst []byte, src string, match []int) []byte {
	for _, node := range t {
		if !node.IsRef {
			dst = append(dst, node.Text...)
			continue
		}
		if node.Group < 0 || node.Group >= len(match)/2 {
			continue
		}
		start, end := match[2*node.Group], match[2*node.Group+1]
		if start < 0 {
			continue
		}
		dst = append(dst, src[start:end]...)
	}
	return dst
}

func (t Template) String() string {
	var sb strings.Builder
	for _, node := range t {
		if node.IsRef {
			sb.WriteString("${")
			sb.WriteString(strconv.Itoa(node.Group))
			sb.WriteByte('}')
			continue
		}
		sb.WriteString(strings.ReplaceAll(node.Text, "$", "$$"))
	}
	return sb.String()
}
