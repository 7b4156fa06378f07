// Package help answers /help with a fixed usage message.
package help

import (
	"strings"

	"github.com/rg/sedbot/internal/domain"
)

const command = "/help"

const Usage = "This bot rewrites messages with sed-style regular expression replacements.\n\n" +
	"/help - shows this message\n\n" +
	"s/regex/replacement/flags - reply to a message with this to get it back rewritten.\n" +
	"Use $1 or \\1 in the replacement to insert capture groups and \\/ for a literal slash.\n\n" +
	"Flags:\n" +
	"g - replace every match instead of the first one\n" +
	"i - case-insensitive\n" +
	"m - ^ and $ match at line boundaries\n" +
	"s - . matches newlines\n" +
	"U - swap greedy and lazy quantifiers\n" +
	"x - ignore whitespace and # comments in the regex\n" +
	"o - allow octal escapes"

type Request[M, C domain.ID] struct {
	OriginalMessageID M
	ChatID            C
}

// Parser recognizes "/help" and "/help@<handle>" for this bot's handle.
// It never fails.
type Parser[M, C domain.ID] struct{}

func (Parser[M, C]) Parse(session domain.Bot, msg domain.Message[M, C]) (Request[M, C], bool, error) {
	text := strings.TrimSpace(msg.Data.Content)
	if text != command {
		head, handle, found := strings.Cut(text, "@")
		if !found || head != command || !session.MentionsHandle(handle) {
			return Request[M, C]{}, false, nil
		}
	}
	return Request[M, C]{
		OriginalMessageID: msg.ID,
		ChatID:            msg.Data.ChatID,
	}, true, nil
}

type Command[M, C domain.ID] struct{}

func (Command[M, C]) Execute(req Request[M, C]) (domain.NewMessage[M, C], error) {
	return domain.NewMessage[M, C]{
		Data: domain.MessageData[M, C]{
			ChatID:      req.ChatID,
			Content:     Usage,
			ReplyTarget: domain.ReplyToID[M, C](req.OriginalMessageID),
		},
	}, nil
}
