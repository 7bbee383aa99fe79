package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// Console is a terminal-backed Transport. It stands in for a real chat
// platform SDK: replies and prompts print to out, and ReadEvents turns
// stdin lines into Events. Useful for local runs and smoke tests.
type Console struct {
	locale string

	mu     sync.Mutex
	out    io.Writer
	nextID int
}

func NewConsole(out io.Writer, locale string) *Console {
	if locale == "" {
		locale = "en-US"
	}
	return &Console{out: out, locale: locale}
}

func (c *Console) ref(dest Destination) MessageRef {
	c.nextID++
	return MessageRef{Dest: dest, ID: fmt.Sprintf("msg_%d", c.nextID)}
}

func (c *Console) PostMessage(_ context.Context, dest Destination, text string) (MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := c.ref(dest)
	fmt.Fprintf(c.out, "[%s] %s\n", ref.ID, text)
	return ref, nil
}

func (c *Console) PostPrompt(_ context.Context, dest Destination, prompt Prompt) (MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := c.ref(dest)
	fmt.Fprintf(c.out, "[%s] %s\n", ref.ID, prompt.Text)
	for _, b := range prompt.Buttons {
		fmt.Fprintf(c.out, "    %s -> type: %s %s\n", b.Label, b.ActionID, b.Value)
	}
	return ref, nil
}

func (c *Console) UpdateMessage(_ context.Context, ref MessageRef, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[%s edited] %s\n", ref.ID, text)
	return nil
}

func (c *Console) DeleteMessage(_ context.Context, ref MessageRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[%s deleted]\n", ref.ID)
	return nil
}

func (c *Console) UploadFile(_ context.Context, _ Destination, path, comment string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[file] %s (%s)\n", path, comment)
	return nil
}

func (c *Console) UserLocale(_ context.Context, _ string) (string, error) {
	return c.locale, nil
}

// ReadEvents turns lines from in into Events on the returned channel. The
// channel closes on EOF or when ctx is cancelled.
func (c *Console) ReadEvents(ctx context.Context, in io.Reader, dest Destination, userID string) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case events <- Event{Dest: dest, UserID: userID, Text: line}:
			}
		}
	}()
	return events
}
