package messaging

import (
	"context"
	"errors"

	"github.com/rg/sedbot/internal/domain"
)

// ErrDisconnected marks a clean end of the inbound stream. It is not a
// transport failure and callers should stop without treating it as one.
var ErrDisconnected = errors.New("message channel disconnected")

// Sender delivers exactly one outbound message per call and does not retry.
type Sender[M, C domain.ID] interface {
	Send(ctx context.Context, msg *domain.NewMessage[M, C]) error
}

// Receiver blocks until the next inbound message arrives. It returns
// ErrDisconnected once the stream has ended.
type Receiver[M, C domain.ID] interface {
	Receive(ctx context.Context) (domain.Message[M, C], error)
}

type Channel[M, C domain.ID] interface {
	Sender[M, C]
	Receiver[M, C]
}
