package claude

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeExec struct {
	calls   [][]string
	outcome execOutcome
}

func (f *fakeExec) run(_ context.Context, _ string, args []string, _ string) execOutcome {
	f.calls = append(f.calls, args)
	return f.outcome
}

func newTestRunner(fake *fakeExec) *Runner {
	r := NewRunner("claude", "/srv/work", time.Minute, nil)
	r.execCommand = fake.run
	return r
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func TestRun_FirstInvocationOmitsContinue(t *testing.T) {
	fake := &fakeExec{outcome: execOutcome{stdout: "hi"}}
	r := newTestRunner(fake)

	res := r.Run(context.Background(), "hello", true)
	if !res.Succeeded || res.Output != "hi" {
		t.Fatalf("result = %+v", res)
	}
	if hasFlag(fake.calls[0], "--continue") {
		t.Fatalf("first run must not continue: %v", fake.calls[0])
	}
	if !hasFlag(fake.calls[0], "--print") || !hasFlag(fake.calls[0], "--dangerously-skip-permissions") {
		t.Fatalf("missing base flags: %v", fake.calls[0])
	}
	if fake.calls[0][len(fake.calls[0])-1] != "hello" {
		t.Fatalf("message must be the final argument: %v", fake.calls[0])
	}
}

func TestRun_SecondInvocationContinues(t *testing.T) {
	fake := &fakeExec{outcome: execOutcome{stdout: "ok"}}
	r := newTestRunner(fake)

	r.Run(context.Background(), "hello", true)
	r.Run(context.Background(), "hello", true)

	if hasFlag(fake.calls[0], "--continue") {
		t.Fatal("first run must not continue")
	}
	if !hasFlag(fake.calls[1], "--continue") {
		t.Fatalf("second run must continue: %v", fake.calls[1])
	}
}

func TestRun_ContinueSessionFalseNeverContinues(t *testing.T) {
	fake := &fakeExec{outcome: execOutcome{stdout: "ok"}}
	r := newTestRunner(fake)

	r.Run(context.Background(), "a", true)
	r.Run(context.Background(), "b", false)
	if hasFlag(fake.calls[1], "--continue") {
		t.Fatal("continueSession=false must omit the flag")
	}
}

func TestRun_FailedRunStillStartsSession(t *testing.T) {
	fake := &fakeExec{outcome: execOutcome{exitCode: 1, stderr: "boom"}}
	r := newTestRunner(fake)

	res := r.Run(context.Background(), "a", true)
	if res.Succeeded {
		t.Fatal("non-zero exit must not succeed")
	}
	if !strings.Contains(res.Output, "boom") {
		t.Fatalf("stderr must surface in output: %q", res.Output)
	}

	fake.outcome = execOutcome{stdout: "ok"}
	r.Run(context.Background(), "b", true)
	if !hasFlag(fake.calls[1], "--continue") {
		t.Fatal("a completed failed run still establishes continuation")
	}
}

func TestRun_NonZeroExitEmptyStderr(t *testing.T) {
	fake := &fakeExec{outcome: execOutcome{exitCode: 2}}
	r := newTestRunner(fake)

	res := r.Run(context.Background(), "a", true)
	if res.Succeeded || !strings.Contains(res.Output, "unknown error") {
		t.Fatalf("result = %+v", res)
	}
}

func TestRun_TimeoutDoesNotStartSession(t *testing.T) {
	fake := &fakeExec{outcome: execOutcome{timedOut: true}}
	r := newTestRunner(fake)

	res := r.Run(context.Background(), "a", true)
	if res.Succeeded || !strings.Contains(res.Output, "timed out") {
		t.Fatalf("result = %+v", res)
	}

	fake.outcome = execOutcome{stdout: "ok"}
	r.Run(context.Background(), "b", true)
	if hasFlag(fake.calls[1], "--continue") {
		t.Fatal("a timed-out run must not establish continuation")
	}
}

func TestRun_StartError(t *testing.T) {
	fake := &fakeExec{outcome: execOutcome{startErr: errors.New("no such binary")}}
	r := newTestRunner(fake)

	res := r.Run(context.Background(), "a", true)
	if res.Succeeded || !strings.Contains(res.Output, "failed to start") {
		t.Fatalf("result = %+v", res)
	}
}

func TestReset_ReturnsToFresh(t *testing.T) {
	fake := &fakeExec{outcome: execOutcome{stdout: "ok"}}
	r := newTestRunner(fake)

	r.Run(context.Background(), "a", true)
	if !r.SessionStarted() {
		t.Fatal("session should be started")
	}
	r.Reset()
	if r.SessionStarted() {
		t.Fatal("reset must clear continuation")
	}

	r.Run(context.Background(), "b", true)
	if hasFlag(fake.calls[1], "--continue") {
		t.Fatal("run after reset must behave like a fresh session")
	}
}

func TestRunSubprocess_DeadlineMarksTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	out := runSubprocess(ctx, "sleep", []string{"5"}, t.TempDir())
	elapsed := time.Since(start)

	if !out.timedOut {
		t.Fatalf("expected timeout, got %+v", out)
	}
	if elapsed > 3*time.Second {
		t.Fatalf("subprocess blocked for %v, expected prompt timeout", elapsed)
	}
}

func TestRunSubprocess_MissingBinaryIsStartError(t *testing.T) {
	out := runSubprocess(context.Background(), "/nonexistent/claude-bin", nil, t.TempDir())
	if out.startErr == nil {
		t.Fatal("expected start error")
	}
}
