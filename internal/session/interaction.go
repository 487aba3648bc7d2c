package session

import "context"

// Transport is the chat surface the bot replies through. Implementations
// live outside this repo; tests use a fake.
type Transport interface {
	// SendMessage posts a new message to the chat and returns its ID.
	SendMessage(ctx context.Context, chatID int64, text string) (int64, error)
	// EditMessage replaces the text of an existing message.
	EditMessage(ctx context.Context, chatID, messageID int64, text string) error
	// AnswerButton acknowledges a button press so the client stops its
	// spinner.
	AnswerButton(ctx context.Context, callbackID string) error
}

type interactionKind int

const (
	fromMessage interactionKind = iota
	fromButton
)

// Interaction is a handle on the chat event that triggered the current
// update. Button-originated interactions can edit their originating message
// and must be acknowledged; message-originated ones only gain an editable
// message after the first Respond.
type Interaction struct {
	kind       interactionKind
	transport  Transport
	chatID     int64
	messageID  int64
	callbackID string
}

// FromMessage builds a handle for a plain incoming message.
func FromMessage(t Transport, chatID int64) *Interaction {
	return &Interaction{kind: fromMessage, transport: t, chatID: chatID}
}

// FromButton builds a handle for a button press on an existing message.
func FromButton(t Transport, chatID, messageID int64, callbackID string) *Interaction {
	return &Interaction{kind: fromButton, transport: t, chatID: chatID, messageID: messageID, callbackID: callbackID}
}

// ChatID returns the chat the interaction belongs to.
func (i *Interaction) ChatID() int64 {
	return i.chatID
}

// FromButtonPress reports whether the interaction originated from a button.
func (i *Interaction) FromButtonPress() bool {
	return i.kind == fromButton
}

// Respond posts a new message. The message becomes the target of subsequent
// Edit calls, which is how progress updates rewrite a single status message.
func (i *Interaction) Respond(ctx context.Context, text string) error {
	id, err := i.transport.SendMessage(ctx, i.chatID, text)
	if err != nil {
		return err
	}
	i.messageID = id
	return nil
}

// Edit rewrites the current target message, falling back to Respond when no
// message exists yet.
func (i *Interaction) Edit(ctx context.Context, text string) error {
	if i.messageID == 0 {
		return i.Respond(ctx, text)
	}
	return i.transport.EditMessage(ctx, i.chatID, i.messageID, text)
}

// Acknowledge answers the button press. For message-originated interactions
// it is a no-op.
func (i *Interaction) Acknowledge(ctx context.Context) error {
	if i.kind != fromButton || i.callbackID == "" {
		return nil
	}
	return i.transport.AnswerButton(ctx, i.callbackID)
}
