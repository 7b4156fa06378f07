package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxErrorReplyLen keeps regex diagnostics within a single Telegram message.
const maxErrorReplyLen = 4000

type ResponseFormatter struct {
	maxLength int
}

func NewResponseFormatter(maxLength int) *ResponseFormatter {
	return &ResponseFormatter{
		maxLength: maxLength,
	}
}

func (rf *ResponseFormatter) FormatError(err error) string {
	return rf.Truncate(fmt.Sprintf("❌ Error: %v", err))
}

func (rf *ResponseFormatter) Truncate(text string) string {
	text = strings.TrimSpace(text)
	if rf.maxLength <= 3 || len(text) <= rf.maxLength {
		return text
	}
	cut := rf.maxLength - 3
	// avoid splitting a UTF-8 sequence
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
