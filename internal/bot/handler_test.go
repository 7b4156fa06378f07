package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/rg/sedbot/internal/commands/help"
	"github.com/rg/sedbot/internal/commands/replace"
	"github.com/rg/sedbot/internal/domain"
	"github.com/rg/sedbot/internal/messaging"
)

type msgID int

func (id msgID) String() string { return strconv.Itoa(int(id)) }

type chatID int64

func (id chatID) String() string { return strconv.FormatInt(int64(id), 10) }

type fakeSender struct {
	sent []domain.NewMessage[msgID, chatID]
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg *domain.NewMessage[msgID, chatID]) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, *msg)
	return nil
}

// fakeReceiver replays queued messages, then reports disconnection or err.
type fakeReceiver struct {
	queue []domain.Message[msgID, chatID]
	err   error
}

func (r *fakeReceiver) Receive(_ context.Context) (domain.Message[msgID, chatID], error) {
	if len(r.queue) == 0 {
		if r.err != nil {
			return domain.Message[msgID, chatID]{}, r.err
		}
		return domain.Message[msgID, chatID]{}, messaging.ErrDisconnected
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func textMessage(id msgID, text string, target domain.ReplyTarget[msgID, chatID]) domain.Message[msgID, chatID] {
	return domain.Message[msgID, chatID]{
		ID: id,
		Data: domain.MessageData[msgID, chatID]{
			ChatID:      77,
			Content:     text,
			ReplyTarget: target,
		},
	}
}

func notReplying() domain.ReplyTarget[msgID, chatID] {
	return domain.NotReplyingTo[msgID, chatID]()
}

func helpHandler(sender messaging.Sender[msgID, chatID]) Handler[msgID, chatID] {
	return NewHandler[help.Request[msgID, chatID], msgID, chatID](
		"help", help.Parser[msgID, chatID]{}, help.Command[msgID, chatID]{}, sender)
}

func replaceHandler(sender messaging.Sender[msgID, chatID]) Handler[msgID, chatID] {
	return NewHandler[replace.Request[msgID, chatID], msgID, chatID](
		"replace", replace.Parser[msgID, chatID]{}, replace.Command[msgID, chatID]{}, sender)
}

func replyID(t *testing.T, msg domain.NewMessage[msgID, chatID]) msgID {
	t.Helper()
	id, ok := msg.Data.ReplyTarget.MessageID()
	if !ok {
		t.Fatalf("outbound message is not a reply: %+v", msg)
	}
	return id
}

func TestHandler_Help(t *testing.T) {
	sender := &fakeSender{}
	claimed, err := helpHandler(sender).Run(context.Background(), domain.NewBot("sedbot"),
		textMessage(3, "/help", notReplying()))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected /help to be claimed")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if sender.sent[0].Data.Content != help.Usage {
		t.Errorf("Content = %q, want usage text", sender.sent[0].Data.Content)
	}
	if got := replyID(t, sender.sent[0]); got != 3 {
		t.Errorf("reply to = %v, want triggering message 3", got)
	}
}

func TestHandler_ReplaceRepliesToOriginal(t *testing.T) {
	sender := &fakeSender{}
	original := textMessage(1, "hello world", notReplying())
	trigger := textMessage(2, "s/world/there/", domain.ReplyTo(original))

	claimed, err := replaceHandler(sender).Run(context.Background(), domain.Bot{}, trigger)
	if err != nil || !claimed {
		t.Fatalf("Run = (%v, %v), want (true, nil)", claimed, err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if got := sender.sent[0].Data.Content; got != "hello there" {
		t.Errorf("Content = %q, want %q", got, "hello there")
	}
	if got := replyID(t, sender.sent[0]); got != 1 {
		t.Errorf("reply to = %v, want original message 1", got)
	}
	if got := sender.sent[0].Data.ChatID; got != 77 {
		t.Errorf("ChatID = %v, want 77", got)
	}
}

func TestHandler_ParseErrorRenderedAsReply(t *testing.T) {
	sender := &fakeSender{}
	original := textMessage(1, "abc", notReplying())
	trigger := textMessage(2, "s/a", domain.ReplyTo(original))

	claimed, err := replaceHandler(sender).Run(context.Background(), domain.Bot{}, trigger)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !claimed {
		t.Error("a malformed command should be claimed")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if got := sender.sent[0].Data.Content; !strings.Contains(got, "missing query") {
		t.Errorf("Content = %q, want missing query diagnostic", got)
	}
	if got := replyID(t, sender.sent[0]); got != 2 {
		t.Errorf("error reply to = %v, want triggering message 2", got)
	}
}

func TestHandler_CommandErrorRenderedAsReply(t *testing.T) {
	sender := &fakeSender{}
	trigger := textMessage(2, "s/a/b", notReplying())

	claimed, err := replaceHandler(sender).Run(context.Background(), domain.Bot{}, trigger)
	if err != nil || !claimed {
		t.Fatalf("Run = (%v, %v), want (true, nil)", claimed, err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if got := sender.sent[0].Data.Content; !strings.Contains(got, "no message could be reached") {
		t.Errorf("Content = %q, want missing message diagnostic", got)
	}
	if got := replyID(t, sender.sent[0]); got != 2 {
		t.Errorf("error reply to = %v, want triggering message 2", got)
	}
}

func TestHandler_NotRecognized(t *testing.T) {
	sender := &fakeSender{}
	claimed, err := replaceHandler(sender).Run(context.Background(), domain.Bot{},
		textMessage(1, "just chatting", notReplying()))
	if err != nil || claimed {
		t.Errorf("Run = (%v, %v), want (false, nil)", claimed, err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(sender.sent))
	}
}

func TestHandler_SendErrorPropagates(t *testing.T) {
	sendErr := errors.New("network down")
	sender := &fakeSender{err: sendErr}

	tests := []struct {
		name string
		text string
	}{
		{"success_path", "/help"},
		{"error_reply_path", "s/(/x/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := helpHandler(sender)
			if strings.HasPrefix(tt.text, "s/") {
				h = replaceHandler(sender)
			}
			_, err := h.Run(context.Background(), domain.Bot{}, textMessage(1, tt.text, notReplying()))
			if !errors.Is(err, sendErr) {
				t.Errorf("error = %v, want wrapped send error", err)
			}
		})
	}
}

func TestResponseFormatter_Truncate(t *testing.T) {
	tests := []struct {
		name string
		max  int
		text string
		want string
	}{
		{"short", 10, "hello", "hello"},
		{"exact", 5, "hello", "hello"},
		{"truncated", 8, "hello world", "hello..."},
		{"multibyte_boundary", 7, "héééééé", "hé..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewResponseFormatter(tt.max).Truncate(tt.text); got != tt.want {
				t.Errorf("Truncate(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestResponseFormatter_FormatError(t *testing.T) {
	rf := NewResponseFormatter(maxErrorReplyLen)

	got := rf.FormatError(replace.ErrMissingMessage)
	want := "❌ Error: " + replace.ErrMissingMessage.Error()
	if got != want {
		t.Errorf("FormatError = %q, want %q", got, want)
	}

	long := errors.New(strings.Repeat("x", 2*maxErrorReplyLen))
	if got := rf.FormatError(long); len(got) != maxErrorReplyLen || !strings.HasSuffix(got, "...") {
		t.Errorf("FormatError(long) has length %d, want %d ending in ...", len(got), maxErrorReplyLen)
	}
}
