package sed

const (
	delimiter = '/'
	escape    = '\\'
)

// Split cuts input around the first '/' that is not escaped. A '/' preceded
// by an odd run of backslashes is part of the segment. The escape bit is set
// by a backslash outside an escape and cleared by any other character.
func Split(input string) (head, tail string, ok bool) {
	escaped := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		if c == delimiter && !escaped {
			return input[:i], input[i+1:], true
		}
		escaped = c == escape && !escaped
	}
	return input, "", false
}
