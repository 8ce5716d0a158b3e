package admin

import (
	"context"

	"github.com/m3rciful/dirbot/internal/session"
)

// MessageRef identifies a rendered message so it can be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether r points at no message.
func (r MessageRef) IsZero() bool {
	return r.MessageID == 0
}

// ButtonSpec is one inline button.
type ButtonSpec struct {
	Text    string
	Key     string
	Payload string
}

// Layout is a grid of inline buttons, one slice per row.
type Layout [][]ButtonSpec

// Transport is what the controller needs from the chat layer.
type Transport interface {
	RenderText(ctx context.Context, key session.Key, text string, layout Layout) (MessageRef, error)
	UpdateText(ctx context.Context, key session.Key, ref MessageRef, text string, layout Layout) error
	UpdateButtons(ctx context.Context, key session.Key, ref MessageRef, layout Layout) error
	// Acknowledge stops the transport's progress indicator for a button
	// press. notice may be empty.
	Acknowledge(ctx context.Context, token, notice string) error
}
