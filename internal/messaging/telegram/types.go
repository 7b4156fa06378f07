package telegram

import (
	"strconv"
	"unicode/utf8"

	"github.com/rg/sedbot/internal/domain"
)

const (
	MaxMessageLength = 4096

	// emptyText replaces outbound messages with no content; the Bot API
	// rejects empty text with a 400, which would otherwise fail the run.
	emptyText = "(empty message)"
)

type MessageID int

func (id MessageID) String() string { return strconv.Itoa(int(id)) }

type ChatID int64

func (id ChatID) String() string { return strconv.FormatInt(int64(id), 10) }

type (
	Message    = domain.Message[MessageID, ChatID]
	NewMessage = domain.NewMessage[MessageID, ChatID]
)

// SplitMessage cuts text into chunks of at most maxLength bytes, preferring
// a newline within the last 200 bytes of a chunk and never splitting a rune.
func SplitMessage(text string, maxLength int) []string {
	if len(text) <= maxLength {
		return []string{text}
	}

	var chunks []string
	remaining := text

	for len(remaining) > 0 {
		if len(remaining) <= maxLength {
			chunks = append(chunks, remaining)
			break
		}

		splitIndex := maxLength
		for splitIndex > 0 && !utf8.RuneStart(remaining[splitIndex]) {
			splitIndex--
		}
		for i := maxLength - 1; i >= maxLength-200 && i > 0; i-- {
			if remaining[i] == '\n' {
				splitIndex = i
				break
			}
		}
		if splitIndex == 0 {
			splitIndex = maxLength
		}

		chunks = append(chunks, remaining[:splitIndex])
		remaining = remaining[splitIndex:]
	}

	return chunks
}
