package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rg/sedbot/internal/domain"
	"github.com/rg/sedbot/internal/messaging"
)

var allowedUpdates = []string{"message", "channel_post"}

type Options struct {
	// Endpoint is a printf pattern taking the token and the method name.
	// Defaults to tgbotapi.APIEndpoint.
	Endpoint    string
	HTTPClient  *http.Client
	PollTimeout time.Duration
}

// Client is a messaging.Channel over the Bot API long-polling interface.
// Receive and Send must not be called concurrently; the dispatcher never does.
type Client struct {
	bot         *tgbotapi.BotAPI
	pollTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	offset  int
	pending []tgbotapi.Update

	stop     chan struct{}
	stopOnce sync.Once
}

var _ messaging.Channel[MessageID, ChatID] = (*Client)(nil)

// NewClient authorizes the token with getMe. Every Bot API request made by
// the client is bound to ctx, so cancelling it aborts an in-flight long poll.
func NewClient(ctx context.Context, token string, opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = tgbotapi.APIEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	ctx, cancel := context.WithCancel(ctx)
	bot, err := tgbotapi.NewBotAPIWithClient(token, opts.Endpoint, &contextClient{ctx: ctx, client: opts.HTTPClient})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot.Debug = false
	slog.Info("Authorized on Telegram account", "username", bot.Self.UserName)

	return &Client{
		bot:         bot,
		pollTimeout: opts.PollTimeout,
		ctx:         ctx,
		cancel:      cancel,
		stop:        make(chan struct{}),
	}, nil
}

// Username is the authorized bot's @username without the "@".
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// Stop ends the update stream. The next Receive reports
// messaging.ErrDisconnected. Safe to call more than once.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		c.cancel()
	})
}

func (c *Client) stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// Receive returns the next text message or channel post. Other updates are
// skipped. Failed polls are returned as transport errors without retrying.
func (c *Client) Receive(ctx context.Context) (Message, error) {
	for {
		if len(c.pending) > 0 {
			update := c.pending[0]
			c.pending = c.pending[1:]
			if msg, ok := convertUpdate(update); ok {
				return msg, nil
			}
			continue
		}

		if c.stopped() {
			return Message{}, messaging.ErrDisconnected
		}
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		updates, err := c.bot.GetUpdates(tgbotapi.UpdateConfig{
			Offset:         c.offset,
			Timeout:        int(c.pollTimeout / time.Second),
			AllowedUpdates: allowedUpdates,
		})
		if err != nil {
			if c.stopped() {
				return Message{}, messaging.ErrDisconnected
			}
			if ctxErr := c.ctx.Err(); ctxErr != nil {
				return Message{}, ctxErr
			}
			return Message{}, fmt.Errorf("failed to get updates: %w", err)
		}

		for _, update := range updates {
			if update.UpdateID >= c.offset {
				c.offset = update.UpdateID + 1
			}
		}
		c.pending = append(c.pending, updates...)
	}
}

// Send delivers msg as plain text. A reply target becomes reply_to_message_id
// on the first chunk; Telegram still delivers if that message was deleted.
func (c *Client) Send(ctx context.Context, msg *NewMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := msg.Data.Content
	if text == "" {
		text = emptyText
	}

	for i, chunk := range SplitMessage(text, MaxMessageLength) {
		cfg := tgbotapi.NewMessage(int64(msg.Data.ChatID), chunk)
		if i == 0 {
			if id, ok := msg.Data.ReplyTarget.MessageID(); ok {
				cfg.ReplyToMessageID = int(id)
				cfg.AllowSendingWithoutReply = true
			}
		}

		if _, err := c.bot.Send(cfg); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}

	return nil
}

// convertUpdate maps a text message or channel post to a domain message.
func convertUpdate(update tgbotapi.Update) (Message, bool) {
	tgMsg := update.Message
	if tgMsg == nil {
		tgMsg = update.ChannelPost
	}
	if tgMsg == nil || tgMsg.Chat == nil || tgMsg.Text == "" {
		return Message{}, false
	}
	return convertMessage(tgMsg, ChatID(tgMsg.Chat.ID), true), true
}

// convertMessage resolves at most one level of reply. A replied-to message
// without text is only referenced by id, so commands cannot read it.
func convertMessage(tgMsg *tgbotapi.Message, chatID ChatID, followReply bool) Message {
	if tgMsg.Chat != nil {
		chatID = ChatID(tgMsg.Chat.ID)
	}

	target := domain.NotReplyingTo[MessageID, ChatID]()
	if reply := tgMsg.ReplyToMessage; reply != nil {
		switch {
		case !followReply:
			target = domain.PrunedReply[MessageID, ChatID]()
		case reply.Text == "":
			target = domain.ReplyToID[MessageID, ChatID](MessageID(reply.MessageID))
		default:
			target = domain.ReplyTo(convertMessage(reply, chatID, false))
		}
	}

	return Message{
		ID: MessageID(tgMsg.MessageID),
		Data: domain.MessageData[MessageID, ChatID]{
			ChatID:      chatID,
			Content:     tgMsg.Text,
			ReplyTarget: target,
		},
	}
}

// contextClient binds every Bot API request to the client's lifetime.
type contextClient struct {
	ctx    context.Context
	client *http.Client
}

func (c *contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}
