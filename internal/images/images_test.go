package images

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vibebridge/bot/internal/chat"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSnapshot_RecursiveImagesOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "plot.png"))
	writeFile(t, filepath.Join(dir, "sub", "chart.JPG"))
	writeFile(t, filepath.Join(dir, "notes.txt"))

	snap := Snapshot(dir)
	if len(snap) != 2 {
		t.Fatalf("got %d entries: %v", len(snap), snap)
	}
	if _, ok := snap[filepath.Join(dir, "sub", "chart.JPG")]; !ok {
		t.Fatal("nested image missing from snapshot")
	}
}

func TestFindNewOrModified(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.png")
	writeFile(t, old)

	before := Snapshot(dir)

	writeFile(t, filepath.Join(dir, "fresh.png"))
	// Touch the old file forward to count as modified.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(old, future, future); err != nil {
		t.Fatal(err)
	}

	got := FindNewOrModified(dir, before)
	if len(got) != 2 {
		t.Fatalf("want new+modified, got %v", got)
	}
}

func TestFindNewOrModified_NoChanges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "stable.png"))
	before := Snapshot(dir)
	if got := FindNewOrModified(dir, before); len(got) != 0 {
		t.Fatalf("expected none, got %v", got)
	}
}

func TestExtractReferenced(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "result.png")
	writeFile(t, abs)
	writeFile(t, filepath.Join(dir, "sub", "img.jpeg"))

	response := "Saved to " + abs + " and also `sub/img.jpeg` plus missing.png again " + abs

	got := ExtractReferenced(response, dir)
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	if got[0] != abs {
		t.Fatalf("absolute mention should come first, got %v", got)
	}
	if got[1] != filepath.Join(dir, "sub", "img.jpeg") {
		t.Fatalf("relative mention should resolve against the work dir, got %v", got)
	}
}

func TestExtractReferenced_SkipsNonexistent(t *testing.T) {
	if got := ExtractReferenced("see /tmp/definitely-not-here-12345.png", t.TempDir()); got != nil {
		t.Fatalf("got %v", got)
	}
}

func TestFindContextual(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "loss_curve.png"))
	writeFile(t, filepath.Join(dir, "unrelated.png"))

	got := FindContextual("show me the loss curve graph", "training finished", dir)
	if len(got) != 1 || filepath.Base(got[0]) != "loss_curve.png" {
		t.Fatalf("got %v", got)
	}
}

func TestFindContextual_NoImageTalk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "loss_curve.png"))
	if got := FindContextual("fix the failing test", "done", dir); got != nil {
		t.Fatalf("contextual pass must stay silent without image keywords, got %v", got)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUploader_CommentAndScreenshotCleanup(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "plot.png")
	shot := filepath.Join(dir, "screenshot.png")
	writeFile(t, keep)
	writeFile(t, shot)

	fake := chat.NewFake()
	u := NewUploader(discardLogger(), fake)
	u.Upload(context.Background(), chat.Destination{Channel: "C1"}, []string{keep, shot}, "📊 Generated image", false)

	if len(fake.Uploads) != 2 {
		t.Fatalf("got %d uploads", len(fake.Uploads))
	}
	if want := "📊 Generated image: `plot.png`"; fake.Uploads[0].Comment != want {
		t.Fatalf("comment = %q", fake.Uploads[0].Comment)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatal("regular image must survive upload")
	}
	if _, err := os.Stat(shot); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("screenshot.png must be deleted after upload")
	}
}

func TestUploader_SkipsFailedUpload(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "screenshot.png")
	writeFile(t, img)

	fake := chat.NewFake()
	fake.UploadErr = errors.New("boom")
	u := NewUploader(discardLogger(), fake)
	u.Upload(context.Background(), chat.Destination{Channel: "C1"}, []string{img}, "x", false)

	if _, err := os.Stat(img); err != nil {
		t.Fatal("file must not be deleted when the upload failed")
	}
}
