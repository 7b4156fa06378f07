package domain

import (
	"cmp"
	"strings"
)

// ID is the capability required of message and chat identifiers: equality,
// ordering, hashing (map keys) and display.
type ID interface {
	cmp.Ordered
	String() string
}

type ReplyKind int

const (
	NotReplying ReplyKind = iota
	ReplyMessage
	ReplyMessageID
	Pruned
)

func (k ReplyKind) String() string {
	switch k {
	case NotReplying:
		return "not_replying"
	case ReplyMessage:
		return "message"
	case ReplyMessageID:
		return "message_id"
	case Pruned:
		return "pruned"
	default:
		return "unknown"
	}
}

// ReplyTarget describes what a message replies to. A resolved target holds
// at most one nested message: the nested message's own chain is pruned.
type ReplyTarget[M, C ID] struct {
	kind    ReplyKind
	message *Message[M, C]
	id      M
}

func NotReplyingTo[M, C ID]() ReplyTarget[M, C] {
	return ReplyTarget[M, C]{kind: NotReplying}
}

func PrunedReply[M, C ID]() ReplyTarget[M, C] {
	return ReplyTarget[M, C]{kind: Pruned}
}

func ReplyToID[M, C ID](id M) ReplyTarget[M, C] {
	return ReplyTarget[M, C]{kind: ReplyMessageID, id: id}
}

// ReplyTo stores a copy of msg. Any reply link msg carries is replaced by
// Pruned so the chain never grows past one level.
func ReplyTo[M, C ID](msg Message[M, C]) ReplyTarget[M, C] {
	nested := msg
	if nested.Data.ReplyTarget.kind != NotReplying {
		nested.Data.ReplyTarget = PrunedReply[M, C]()
	}
	return ReplyTarget[M, C]{kind: ReplyMessage, message: &nested, id: nested.ID}
}

func (t ReplyTarget[M, C]) Kind() ReplyKind {
	return t.kind
}

func (t ReplyTarget[M, C]) Message() (Message[M, C], bool) {
	if t.kind != ReplyMessage || t.message == nil {
		return Message[M, C]{}, false
	}
	return *t.message, true
}

// MessageID returns the replied-to id for both ReplyMessage and ReplyMessageID targets.
func (t ReplyTarget[M, C]) MessageID() (M, bool) {
	switch t.kind {
	case ReplyMessage, ReplyMessageID:
		return t.id, true
	default:
		var zero M
		return zero, false
	}
}

// MessageData is the payload shared by inbound and outbound messages.
type MessageData[M, C ID] struct {
	ChatID      C
	Content     string
	ReplyTarget ReplyTarget[M, C]
}

// Message is an inbound message already delivered by the platform.
type Message[M, C ID] struct {
	ID   M
	Data MessageData[M, C]
}

// NewMessage is an outbound message that has not been assigned an id yet.
type NewMessage[M, C ID] struct {
	Data MessageData[M, C]
}

// Bot is the read-only session context handed to request parsers.
type Bot struct {
	Handle string
}

func NewBot(handle string) Bot {
	return Bot{Handle: strings.TrimPrefix(strings.TrimSpace(handle), "@")}
}

// MentionsHandle reports whether handle names this bot. Telegram handles are
// case-insensitive.
func (b Bot) MentionsHandle(handle string) bool {
	if b.Handle == "" {
		return false
	}
	return strings.EqualFold(strings.TrimPrefix(handle, "@"), b.Handle)
}
