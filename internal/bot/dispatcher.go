package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rg/sedbot/internal/domain"
	"github.com/rg/sedbot/internal/messaging"
	"github.com/rg/sedbot/internal/metrics"
)

// Dispatcher pulls messages from one receiver and offers each to its
// handlers in order until one claims it. Messages are processed strictly one
// at a time; a handler finishes its send before the next receive.
type Dispatcher[M, C domain.ID] struct {
	session  domain.Bot
	handlers []Handler[M, C]
}

func NewDispatcher[M, C domain.ID](session domain.Bot) *Dispatcher[M, C] {
	return &Dispatcher[M, C]{session: session}
}

// Use appends handlers to the end of the list.
func (d *Dispatcher[M, C]) Use(handlers ...Handler[M, C]) *Dispatcher[M, C] {
	d.handlers = append(d.handlers, handlers...)
	return d
}

// Run returns nil once the receiver reports messaging.ErrDisconnected. Any
// other receive or handler error ends the run and is returned.
func (d *Dispatcher[M, C]) Run(ctx context.Context, receiver messaging.Receiver[M, C]) error {
	for {
		msg, err := receiver.Receive(ctx)
		if errors.Is(err, messaging.ErrDisconnected) {
			slog.Info("Receiver disconnected, stopping dispatcher")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to receive message: %w", err)
		}
		metrics.MessagesReceivedTotal.Inc()

		if err := d.dispatch(ctx, msg); err != nil {
			return err
		}
	}
}

func (d *Dispatcher[M, C]) dispatch(ctx context.Context, msg domain.Message[M, C]) error {
	for _, h := range d.handlers {
		claimed, err := h.Run(ctx, d.session, msg)
		if err != nil {
			return fmt.Errorf("handler %s failed: %w", h.Name(), err)
		}
		if claimed {
			return nil
		}
	}

	metrics.MessagesUnclaimedTotal.Inc()
	slog.Debug("No handler claimed message",
		"chat_id", msg.Data.ChatID.String(),
		"message_id", msg.ID.String())
	return nil
}
