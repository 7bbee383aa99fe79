package chat

import "context"

// Destination identifies where a reply goes: a conversation and thread, plus
// the workspace in multi-workspace deployments.
type Destination struct {
	TeamID  string
	Channel string
	Thread  string
}

// MessageRef is a handle to a posted message, usable for in-place updates.
type MessageRef struct {
	Dest Destination
	ID   string
}

type Button struct {
	Label    string
	ActionID string
	Value    string
	Style    string
}

// Prompt is an interactive message with action buttons.
type Prompt struct {
	Text    string
	Buttons []Button
}

// Event is an inbound user message, already delivered asynchronously by the
// platform.
type Event struct {
	Dest   Destination
	UserID string
	Text   string
}

// Action is a user interaction with a previously posted prompt.
type Action struct {
	ActionID string
	Value    string
	UserID   string
	Message  MessageRef
}

// Transport is the chat platform surface the relay needs. Implementations
// wrap a concrete platform SDK; tests use Fake.
type Transport interface {
	PostMessage(ctx context.Context, dest Destination, text string) (MessageRef, error)
	PostPrompt(ctx context.Context, dest Destination, prompt Prompt) (MessageRef, error)
	UpdateMessage(ctx context.Context, ref MessageRef, text string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	UploadFile(ctx context.Context, dest Destination, path, comment string) error
	UserLocale(ctx context.Context, userID string) (string, error)
}
