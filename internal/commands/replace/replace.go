// Package replace rewrites the replied-to message with an s/search/replacement/flags rule.
package replace

import (
	"errors"

	"github.com/rg/sedbot/internal/domain"
	"github.com/rg/sedbot/internal/sed"
)

var ErrMissingMessage = errors.New("no message could be reached, reply to the text message you want to rewrite")

type Request[M, C domain.ID] struct {
	Rule      *sed.Rule
	TriggerID M
	ChatID    C
	Target    domain.ReplyTarget[M, C]
}

// Parser recognizes any text containing "s/".
type Parser[M, C domain.ID] struct{}

func (Parser[M, C]) Parse(_ domain.Bot, msg domain.Message[M, C]) (Request[M, C], bool, error) {
	rule, ok, err := sed.ParseCommand(msg.Data.Content)
	if !ok || err != nil {
		return Request[M, C]{}, ok, err
	}
	return Request[M, C]{
		Rule:      rule,
		TriggerID: msg.ID,
		ChatID:    msg.Data.ChatID,
		Target:    msg.Data.ReplyTarget,
	}, true, nil
}

// Command applies the rule to the replied-to message and answers that
// message, not the trigger.
type Command[M, C domain.ID] struct{}

func (Command[M, C]) Execute(req Request[M, C]) (domain.NewMessage[M, C], error) {
	target, ok := req.Target.Message()
	if !ok {
		return domain.NewMessage[M, C]{}, ErrMissingMessage
	}
	return domain.NewMessage[M, C]{
		Data: domain.MessageData[M, C]{
			ChatID:      req.ChatID,
			Content:     req.Rule.Apply(target.Data.Content),
			ReplyTarget: domain.ReplyToID[M, C](target.ID),
		},
	}, nil
}
