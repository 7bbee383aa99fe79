package relayserver

import (
	"sync"
	"time"

	"vibebridge/bot/internal/chat"
)

// PendingResponse is the reply destination recorded for an in-flight query.
type PendingResponse struct {
	Key       string
	Dest      chat.Destination
	Indicator chat.MessageRef
	CreatedAt time.Time
}

// ResponseRouter maps a credential to the destination awaiting its agent's
// reply. Entries are recorded before the query frame is sent, so a response
// racing the dispatch path always finds its destination.
type ResponseRouter struct {
	mu      sync.Mutex
	pending map[string]PendingResponse

	now func() time.Time
}

func NewResponseRouter() *ResponseRouter {
	return &ResponseRouter{pending: map[string]PendingResponse{}, now: time.Now}
}

// Record stores the reply destination for key, replacing any prior entry.
func (r *ResponseRouter) Record(key string, dest chat.Destination, indicator chat.MessageRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[key] = PendingResponse{
		Key:       key,
		Dest:      dest,
		Indicator: indicator,
		CreatedAt: r.now(),
	}
}

// Pop atomically removes and returns the entry for key. A duplicate response
// frame finds nothing and is dropped by the caller.
func (r *ResponseRouter) Pop(key string) (PendingResponse, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.pending[key]
	if ok {
		delete(r.pending, key)
	}
	return entry, ok
}

// SweepExpired pops entries older than ttl — orphans whose agent died
// mid-query. A non-positive ttl disables sweeping.
func (r *ResponseRouter) SweepExpired(ttl time.Duration) []PendingResponse {
	if ttl <= 0 {
		return nil
	}
	cutoff := r.now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []PendingResponse
	for key, entry := range r.pending {
		if entry.CreatedAt.Before(cutoff) {
			expired = append(expired, entry)
			delete(r.pending, key)
		}
	}
	return expired
}

// Len returns the number of in-flight entries.
func (r *ResponseRouter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
