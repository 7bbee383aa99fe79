package claude

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"vibebridge/bot/internal/logging"
)

// Result is the executor's verdict for one invocation. The boundary never
// returns an error: every failure mode is folded into Output text.
type Result struct {
	Output    string
	Succeeded bool
}

type execOutcome struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
	startErr error
}

// Runner drives the claude CLI as a subprocess, one conversation per work
// directory. Executions are strictly serialized: the mutex is held for the
// full subprocess call.
type Runner struct {
	logger  *slog.Logger
	bin     string
	workDir string
	timeout time.Duration

	mu             sync.Mutex
	sessionStarted bool

	execCommand func(ctx context.Context, bin string, args []string, workDir string) execOutcome
}

func NewRunner(bin, workDir string, timeout time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewLogger(logging.Options{Writer: io.Discard})
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Runner{
		logger:      logger,
		bin:         bin,
		workDir:     workDir,
		timeout:     timeout,
		execCommand: runSubprocess,
	}
}

// Run sends one message to the CLI and waits for its output. The interactive
// permission prompts of the CLI are skipped; the approval gate upstream is
// the substitute safety layer. The first invocation on a fresh session omits
// the continue flag; later ones carry it while continueSession is true.
func (r *Runner) Run(ctx context.Context, message string, continueSession bool) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	args := []string{"--print", "--dangerously-skip-permissions"}
	if continueSession && r.sessionStarted {
		args = append(args, "--continue")
	}
	args = append(args, message)

	r.logger.Info("running claude", "continue", continueSession && r.sessionStarted, "message_len", len(message))

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	out := r.execCommand(runCtx, r.bin, args, r.workDir)

	switch {
	case out.timedOut:
		r.logger.Error("claude timed out", "timeout", r.timeout)
		return Result{Output: fmt.Sprintf("❌ Claude timed out after %s", r.timeout)}
	case out.startErr != nil:
		r.logger.Error("claude failed to start", "error", out.startErr)
		return Result{Output: fmt.Sprintf("❌ Claude failed to start: %v", out.startErr)}
	}

	// The process ran to completion, so the CLI session now has prior
	// context even when the exit status was non-zero.
	r.sessionStarted = true

	if out.stderr != "" {
		r.logger.Warn("claude stderr", "stderr", truncate(out.stderr, 200))
	}
	if out.exitCode != 0 {
		r.logger.Error("claude exited non-zero", "code", out.exitCode)
		msg := strings.TrimSpace(out.stderr)
		if msg == "" {
			msg = "unknown error"
		}
		return Result{Output: "❌ Claude error: " + msg}
	}

	r.logger.Info("claude responded", "output_len", len(out.stdout))
	return Result{Output: out.stdout, Succeeded: true}
}

// Reset clears the continuation flag; the next Run starts a fresh
// conversation.
func (r *Runner) Reset() {
	r.mu.Lock()
	r.sessionStarted = false
	r.mu.Unlock()
	r.logger.Info("claude session reset")
}

// SessionStarted reports whether a prior run established conversational
// context.
func (r *Runner) SessionStarted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionStarted
}

func runSubprocess(ctx context.Context, bin string, args []string, workDir string) execOutcome {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = workDir
	cmd.Env = colorStrippedEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := execOutcome{stdout: stdout.String(), stderr: stderr.String()}
	if ctx.Err() == context.DeadlineExceeded {
		out.timedOut = true
		return out
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.exitCode = exitErr.ExitCode()
			return out
		}
		out.startErr = err
		return out
	}
	return out
}

func colorStrippedEnv() []string {
	env := []string{"NO_COLOR=1"}
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		switch key {
		case "NO_COLOR", "FORCE_COLOR", "CLICOLOR_FORCE":
			continue
		}
		env = append(env, kv)
	}
	return env
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
