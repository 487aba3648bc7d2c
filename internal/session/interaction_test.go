package session

import (
	"context"
	"testing"
)

type fakeTransport struct {
	nextMessageID int64
	sent          []string
	edits         map[int64][]string
	answered      []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nextMessageID: 100, edits: map[int64][]string{}}
}

func (f *fakeTransport) SendMessage(_ context.Context, _ int64, text string) (int64, error) {
	f.nextMessageID++
	f.sent = append(f.sent, text)
	return f.nextMessageID, nil
}

func (f *fakeTransport) EditMessage(_ context.Context, _ int64, messageID int64, text string) error {
	f.edits[messageID] = append(f.edits[messageID], text)
	return nil
}

func (f *fakeTransport) AnswerButton(_ context.Context, callbackID string) error {
	f.answered = append(f.answered, callbackID)
	return nil
}

func TestMessageInteractionEditFallsBackToRespond(t *testing.T) {
	transport := newFakeTransport()
	handle := FromMessage(transport, 55)
	ctx := context.Background()

	if err := handle.Edit(ctx, "first"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(transport.sent) != 1 || transport.sent[0] != "first" {
		t.Fatalf("edit without a message should send one: %+v", transport.sent)
	}

	if err := handle.Edit(ctx, "second"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := transport.edits[101]; len(got) != 1 || got[0] != "second" {
		t.Fatalf("second edit should rewrite the sent message: %+v", transport.edits)
	}
}

func TestButtonInteractionEditsOriginMessage(t *testing.T) {
	transport := newFakeTransport()
	handle := FromButton(transport, 55, 42, "cb-1")
	ctx := context.Background()

	if err := handle.Edit(ctx, "updated"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := transport.edits[42]; len(got) != 1 || got[0] != "updated" {
		t.Fatalf("expected edit of originating message 42: %+v", transport.edits)
	}
	if !handle.FromButtonPress() {
		t.Fatal("expected button-originated handle")
	}
}

func TestAcknowledge(t *testing.T) {
	transport := newFakeTransport()
	ctx := context.Background()

	if err := FromMessage(transport, 55).Acknowledge(ctx); err != nil {
		t.Fatalf("message acknowledge: %v", err)
	}
	if len(transport.answered) != 0 {
		t.Fatal("message handles should not answer callbacks")
	}

	if err := FromButton(transport, 55, 42, "cb-9").Acknowledge(ctx); err != nil {
		t.Fatalf("button acknowledge: %v", err)
	}
	if len(transport.answered) != 1 || transport.answered[0] != "cb-9" {
		t.Fatalf("callback not answered: %+v", transport.answered)
	}
}

func TestRespondRetargetsEdits(t *testing.T) {
	transport := newFakeTransport()
	handle := FromButton(transport, 55, 42, "cb-2")
	ctx := context.Background()

	if err := handle.Respond(ctx, "status"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if err := handle.Edit(ctx, "status 50%"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := transport.edits[101]; len(got) != 1 || got[0] != "status 50%" {
		t.Fatalf("edit should target the responded message: %+v", transport.edits)
	}
}
