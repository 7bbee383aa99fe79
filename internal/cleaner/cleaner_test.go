package cleaner

import (
	"strings"
	"testing"
)

func TestRemoveANSI(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"\x1b[1;32mgreen\x1b[0m", "green"},
		{"\x1b]0;title\x07body", "body"},
		{"\x1b[?25hcursor", "cursor"},
		{"line\rend", "lineend"},
		{"bell\x07", "bell"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		if got := RemoveANSI(tc.in); got != tc.want {
			t.Fatalf("RemoveANSI(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFilterNoise(t *testing.T) {
	in := "real output\n⠋\nLoading...\n\n\n100% [████]\nmore output\n›\n"
	got := FilterNoise(in)

	if strings.Contains(got, "Loading") || strings.Contains(got, "████") || strings.Contains(got, "⠋") {
		t.Fatalf("noise survived: %q", got)
	}
	if !strings.Contains(got, "real output") || !strings.Contains(got, "more output") {
		t.Fatalf("content dropped: %q", got)
	}
}

func TestFilterNoise_KeepsPercentagesMidLine(t *testing.T) {
	in := "Summary:\nTests passed with 95% coverage overall\n45% [███░░]\nDone."
	got := FilterNoise(in)

	if !strings.Contains(got, "95% coverage") {
		t.Fatalf("content line with a percentage was dropped: %q", got)
	}
	if strings.Contains(got, "███") {
		t.Fatalf("progress bar survived: %q", got)
	}
}

func TestClean_EmptyAfterFiltering(t *testing.T) {
	if got := Clean("⠋\n⠙\n\n"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := Clean(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestClean_NormalizesCodeBlocks(t *testing.T) {
	got := Clean("```go\n\nfunc main() {}\n\n```")
	if got != "```go\nfunc main() {}\n```" {
		t.Fatalf("got %q", got)
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks := Split("hello", 100)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Fatalf("chunks = %v", chunks)
	}
}

func TestSplit_RespectsMaxLength(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("line of ordinary output text\n")
	}
	chunks := Split(b.String(), 500)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 500 {
			t.Fatalf("chunk %d has %d chars", i, len(c))
		}
	}
}

func TestSplit_ReopensFenceWithLanguage(t *testing.T) {
	var code strings.Builder
	code.WriteString("intro\n```python\n")
	for i := 0; i < 100; i++ {
		code.WriteString("print('row')\n")
	}
	code.WriteString("```\n")

	chunks := Split(code.String(), 300)
	if len(chunks) < 2 {
		t.Fatalf("expected split inside fence, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if strings.Count(c, "```")%2 != 0 {
			t.Fatalf("chunk %d has unbalanced fences:\n%s", i, c)
		}
	}
	// Continuation chunks reopen with the original language tag.
	foundReopen := false
	for _, c := range chunks[1:] {
		if strings.HasPrefix(c, "```python\n") {
			foundReopen = true
		}
	}
	if !foundReopen {
		t.Fatalf("no chunk reopened the python fence: %v", chunks)
	}
}

func TestSplit_ConcatenationPreservesContent(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 80; i++ {
		b.WriteString("alpha beta gamma delta\n")
	}
	original := strings.TrimSpace(b.String())
	chunks := Split(original, 400)

	joined := strings.Join(chunks, "\n")
	if joined != original {
		t.Fatalf("concatenated chunks differ from input:\n%q\nvs\n%q", joined, original)
	}
}

func TestSplit_HardSplitsOverlongLine(t *testing.T) {
	long := strings.Repeat("x", 1200)
	chunks := Split(long+"\ntail", 400)

	for i, c := range chunks {
		if len(c) > 400 {
			t.Fatalf("chunk %d has %d chars", i, len(c))
		}
	}
	if joined := strings.Join(chunks, ""); !strings.Contains(joined, "tail") {
		t.Fatalf("tail lost: %v", chunks)
	}
}

func TestCleanAndSplit_Empty(t *testing.T) {
	if got := CleanAndSplit("⠋", 100); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
