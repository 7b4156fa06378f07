package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rg/sedbot/internal/domain"
	"github.com/rg/sedbot/internal/messaging"
	"github.com/rg/sedbot/internal/metrics"
)

// Parser recognizes a request in an inbound message. ok == false with a nil
// error means the message does not name this parser's command. Errors are
// reserved for input that clearly targets the command but is malformed.
type Parser[M, C domain.ID, R any] interface {
	Parse(session domain.Bot, msg domain.Message[M, C]) (req R, ok bool, err error)
}

// Command turns a request into an outbound message. It must not block.
type Command[R any, M, C domain.ID] interface {
	Execute(req R) (domain.NewMessage[M, C], error)
}

// Handler attempts to fully process one inbound message and reports whether
// it claimed it.
type Handler[M, C domain.ID] interface {
	Name() string
	Run(ctx context.Context, session domain.Bot, msg domain.Message[M, C]) (claimed bool, err error)
}

// CommandHandler binds one parser, one command and one sender.
type CommandHandler[R any, M, C domain.ID] struct {
	name      string
	parser    Parser[M, C, R]
	command   Command[R, M, C]
	sender    messaging.Sender[M, C]
	formatter *ResponseFormatter
}

func NewHandler[R any, M, C domain.ID](
	name string,
	parser Parser[M, C, R],
	command Command[R, M, C],
	sender messaging.Sender[M, C],
) *CommandHandler[R, M, C] {
	return &CommandHandler[R, M, C]{
		name:      name,
		parser:    parser,
		command:   command,
		sender:    sender,
		formatter: NewResponseFormatter(maxErrorReplyLen),
	}
}

func (h *CommandHandler[R, M, C]) Name() string {
	return h.name
}

// Run parses msg, executes the command and sends the result. Parse and
// command errors are sent back as replies to msg and count as claimed; only
// send failures are returned.
func (h *CommandHandler[R, M, C]) Run(ctx context.Context, session domain.Bot, msg domain.Message[M, C]) (bool, error) {
	req, ok, err := h.parser.Parse(session, msg)
	if err != nil {
		slog.Debug("Rejected malformed command",
			"handler", h.name,
			"chat_id", msg.Data.ChatID.String(),
			"message_id", msg.ID.String(),
			"error", err)
		metrics.UserErrorsTotal.WithLabelValues(h.name, "parse").Inc()
		return true, h.replyError(ctx, msg, err)
	}
	if !ok {
		return false, nil
	}

	out, err := h.command.Execute(req)
	if err != nil {
		slog.Debug("Command failed",
			"handler", h.name,
			"chat_id", msg.Data.ChatID.String(),
			"message_id", msg.ID.String(),
			"error", err)
		metrics.UserErrorsTotal.WithLabelValues(h.name, "command").Inc()
		return true, h.replyError(ctx, msg, err)
	}

	if err := h.sender.Send(ctx, &out); err != nil {
		return true, fmt.Errorf("failed to send %s response: %w", h.name, err)
	}
	return true, nil
}

func (h *CommandHandler[R, M, C]) replyError(ctx context.Context, msg domain.Message[M, C], cause error) error {
	reply := ReplyText[M, C](msg, h.formatter.FormatError(cause))
	if err := h.sender.Send(ctx, &reply); err != nil {
		return fmt.Errorf("failed to send %s error reply: %w", h.name, err)
	}
	return nil
}

// ReplyText builds an outbound message in msg's chat replying to msg.
func ReplyText[M, C domain.ID](msg domain.Message[M, C], text string) domain.NewMessage[M, C] {
	return domain.NewMessage[M, C]{
		Data: domain.MessageData[M, C]{
			ChatID:      msg.Data.ChatID,
			Content:     text,
			ReplyTarget: domain.ReplyToID[M, C](msg.ID),
		},
	}
}
