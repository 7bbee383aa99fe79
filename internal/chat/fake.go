package chat

import (
	"context"
	"fmt"
	"sync"
)

// Fake records transport calls for tests.
type Fake struct {
	mu      sync.Mutex
	nextID  int
	Posts   []FakePost
	Prompts []FakePrompt
	Updates []FakeUpdate
	Deleted []MessageRef
	Uploads []FakeUpload

	Locales map[string]string

	PostErr   error
	UpdateErr error
	UploadErr error
}

type FakePost struct {
	Ref  MessageRef
	Text string
}

type FakePrompt struct {
	Ref    MessageRef
	Prompt Prompt
}

type FakeUpdate struct {
	Ref  MessageRef
	Text string
}

type FakeUpload struct {
	Dest    Destination
	Path    string
	Comment string
}

func NewFake() *Fake {
	return &Fake{Locales: map[string]string{}}
}

func (f *Fake) ref(dest Destination) MessageRef {
	f.nextID++
	return MessageRef{Dest: dest, ID: fmt.Sprintf("msg_%d", f.nextID)}
}

func (f *Fake) PostMessage(_ context.Context, dest Destination, text string) (MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PostErr != nil {
		return MessageRef{}, f.PostErr
	}
	ref := f.ref(dest)
	f.Posts = append(f.Posts, FakePost{Ref: ref, Text: text})
	return ref, nil
}

func (f *Fake) PostPrompt(_ context.Context, dest Destination, prompt Prompt) (MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PostErr != nil {
		return MessageRef{}, f.PostErr
	}
	ref := f.ref(dest)
	f.Prompts = append(f.Prompts, FakePrompt{Ref: ref, Prompt: prompt})
	return ref, nil
}

func (f *Fake) UpdateMessage(_ context.Context, ref MessageRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.Updates = append(f.Updates, FakeUpdate{Ref: ref, Text: text})
	return nil
}

func (f *Fake) DeleteMessage(_ context.Context, ref MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, ref)
	return nil
}

func (f *Fake) UploadFile(_ context.Context, dest Destination, path, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UploadErr != nil {
		return f.UploadErr
	}
	f.Uploads = append(f.Uploads, FakeUpload{Dest: dest, Path: path, Comment: comment})
	return nil
}

func (f *Fake) UserLocale(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if loc, ok := f.Locales[userID]; ok {
		return loc, nil
	}
	return "en-US", nil
}

// UpdatedTexts returns the update texts in call order.
func (f *Fake) UpdatedTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Updates))
	for i, u := range f.Updates {
		out[i] = u.Text
	}
	return out
}

// PostedTexts returns the plain-message texts in post order.
func (f *Fake) PostedTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Posts))
	for i, p := range f.Posts {
		out[i] = p.Text
	}
	return out
}
