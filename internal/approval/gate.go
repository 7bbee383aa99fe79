package approval

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vibebridge/bot/internal/chat"
	"vibebridge/bot/internal/logging"
	"vibebridge/bot/internal/trust"
)

// PendingTask is a not-yet-executed instruction awaiting human approval.
type PendingTask struct {
	ID             string
	Message        string
	Dest           chat.Destination
	Requester      string
	UntrustedPaths []string
	CreatedAt      time.Time

	// PromptRef points at the approval prompt message, so a resolution can
	// rewrite it.
	PromptRef chat.MessageRef
}

// Classification is the gate's verdict for one message.
type Classification struct {
	AutoApproved   bool
	UntrustedPaths []string
}

// Gate classifies messages against the trust store and owns the pending-task
// table between the approval request and the user's button click.
type Gate struct {
	logger *slog.Logger
	trust  *trust.Store
	safe   *trust.SafeCommandClassifier

	mu      sync.Mutex
	pending map[string]PendingTask

	now func() time.Time
}

func NewGate(store *trust.Store, safe *trust.SafeCommandClassifier, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = logging.NewLogger(logging.Options{Writer: io.Discard})
	}
	return &Gate{
		logger:  logger,
		trust:   store,
		safe:    safe,
		pending: map[string]PendingTask{},
		now:     time.Now,
	}
}

// Classify runs path extraction over the message and checks absolute
// candidates against the trust store. A message with untrusted paths still
// auto-approves when it matches the safe-command allowlist.
func (g *Gate) Classify(message string) Classification {
	untrusted := trust.UntrustedPaths(g.trust, message)
	if len(untrusted) == 0 || g.safe.IsSafe(message) {
		return Classification{AutoApproved: true}
	}
	return Classification{UntrustedPaths: untrusted}
}

// CreatePending stores a task and returns its fresh id.
func (g *Gate) CreatePending(message string, dest chat.Destination, requester string, untrustedPaths []string) string {
	task := PendingTask{
		ID:             uuid.NewString(),
		Message:        message,
		Dest:           dest,
		Requester:      requester,
		UntrustedPaths: untrustedPaths,
		CreatedAt:      g.now(),
	}
	g.mu.Lock()
	g.pending[task.ID] = task
	g.mu.Unlock()
	g.logger.Info("pending task created", "task_id", task.ID, "paths", untrustedPaths)
	return task.ID
}

// SetPromptRef attaches the approval prompt handle to a live task.
func (g *Gate) SetPromptRef(taskID string, ref chat.MessageRef) {
	g.mu.Lock()
	if task, ok := g.pending[taskID]; ok {
		task.PromptRef = ref
		g.pending[taskID] = task
	}
	g.mu.Unlock()
}

// Resolve removes and returns the task. Pop semantics: a second resolution of
// the same id observes ok=false, so a task can never execute twice.
func (g *Gate) Resolve(taskID string) (PendingTask, bool) {
	g.mu.Lock()
	task, ok := g.pending[taskID]
	if ok {
		delete(g.pending, taskID)
	}
	g.mu.Unlock()
	if !ok {
		g.logger.Info("stale task resolution ignored", "task_id", taskID)
	}
	return task, ok
}

// ApprovePermanent adds every untrusted path of a resolved task to the trust
// store, so later messages referencing them auto-approve.
func (g *Gate) ApprovePermanent(task PendingTask) {
	for _, p := range task.UntrustedPaths {
		g.trust.Add(p)
	}
	g.logger.Info("paths trusted permanently", "task_id", task.ID, "paths", task.UntrustedPaths)
}

// SweepExpired pops and returns every task older than ttl. The original
// design never expired tasks; this is a deliberate gap-fill so an ignored
// prompt does not pin its entry forever.
func (g *Gate) SweepExpired(ttl time.Duration) []PendingTask {
	if ttl <= 0 {
		return nil
	}
	cutoff := g.now().Add(-ttl)
	g.mu.Lock()
	var expired []PendingTask
	for id, task := range g.pending {
		if task.CreatedAt.Before(cutoff) {
			expired = append(expired, task)
			delete(g.pending, id)
		}
	}
	g.mu.Unlock()
	for _, task := range expired {
		g.logger.Info("pending task expired", "task_id", task.ID)
	}
	return expired
}

// PendingCount reports the number of live tasks.
func (g *Gate) PendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}
