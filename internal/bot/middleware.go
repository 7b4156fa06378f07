package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/rg/sedbot/internal/domain"
	"github.com/rg/sedbot/internal/metrics"
)

type instrumented[M, C domain.ID] struct {
	next Handler[M, C]
}

// Instrument wraps h with duration logging and per-outcome metrics.
func Instrument[M, C domain.ID](h Handler[M, C]) Handler[M, C] {
	return &instrumented[M, C]{next: h}
}

func (i *instrumented[M, C]) Name() string {
	return i.next.Name()
}

func (i *instrumented[M, C]) Run(ctx context.Context, session domain.Bot, msg domain.Message[M, C]) (bool, error) {
	start := time.Now()
	claimed, err := i.next.Run(ctx, session, msg)
	duration := time.Since(start)

	name := i.next.Name()
	switch {
	case err != nil:
		slog.Error("Handler failed",
			"handler", name,
			"chat_id", msg.Data.ChatID.String(),
			"message_id", msg.ID.String(),
			"duration", duration,
			"error", err)
		metrics.HandlerRunsTotal.WithLabelValues(name, "failed").Inc()
	case claimed:
		slog.Info("Handled message",
			"handler", name,
			"chat_id", msg.Data.ChatID.String(),
			"message_id", msg.ID.String(),
			"duration", duration)
		metrics.HandlerRunsTotal.WithLabelValues(name, "claimed").Inc()
	default:
		metrics.HandlerRunsTotal.WithLabelValues(name, "skipped").Inc()
	}
	metrics.HandlerDuration.WithLabelValues(name).Observe(duration.Seconds())

	return claimed, err
}
