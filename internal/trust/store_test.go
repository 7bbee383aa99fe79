package trust

import (
	"errors"
	"sync"
	"testing"
)

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"/home/u/project",
		"/home/u/../u/project/./sub",
		"~/project",
		"relative/dir",
		"./other",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalize_CollapsesSegments(t *testing.T) {
	if got := Normalize("/home/u/project/../project/sub/"); got != "/home/u/project/sub" {
		t.Fatalf("got %q", got)
	}
}

func TestStore_TrustMonotonicity(t *testing.T) {
	s := NewStore("/srv/work")
	s.Add("/home/u/project")

	if !s.IsTrusted("/home/u/project") {
		t.Fatal("added path should be trusted")
	}
	if !s.IsTrusted("/home/u/project/sub/file.txt") {
		t.Fatal("descendant should be trusted")
	}
	if s.IsTrusted("/home/u/project2") {
		t.Fatal("sibling with shared prefix must not be trusted")
	}
	if s.IsTrusted("/etc/shadow") {
		t.Fatal("unrelated path must not be trusted")
	}
}

func TestStore_BaseWorkDirImmutable(t *testing.T) {
	s := NewStore("/srv/work")

	if err := s.Remove("/srv/work"); !errors.Is(err, ErrImmutablePath) {
		t.Fatalf("removing the base work dir: got %v, want ErrImmutablePath", err)
	}
	if err := s.Remove("/srv/work/../work"); !errors.Is(err, ErrImmutablePath) {
		t.Fatalf("removing the base via a different spelling: got %v, want ErrImmutablePath", err)
	}
	if !s.IsTrusted("/srv/work") {
		t.Fatal("base must remain trusted")
	}
}

func TestStore_AddRemove(t *testing.T) {
	s := NewStore("/srv/work")
	s.Add("/data/shared")
	s.Add("/data/shared") // idempotent

	if err := s.Remove("/data/shared"); err != nil {
		t.Fatalf("expected removal to succeed, got %v", err)
	}
	if err := s.Remove("/data/shared"); !errors.Is(err, ErrUnknownPath) {
		t.Fatalf("second removal: got %v, want ErrUnknownPath", err)
	}
	if s.IsTrusted("/data/shared/file") {
		t.Fatal("removed path must no longer be trusted")
	}
}

func TestStore_ListSorted(t *testing.T) {
	s := NewStore("/srv/work")
	s.Add("/zeta")
	s.Add("/alpha")

	got := s.List()
	want := []string{"/alpha", "/srv/work", "/zeta"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore("/srv/work")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add("/data/a")
			_ = s.IsTrusted("/data/a/x")
			_ = s.List()
			_ = s.Remove("/data/a")
		}()
	}
	wg.Wait()
	if !s.IsTrusted("/srv/work") {
		t.Fatal("base lost during concurrent access")
	}
}
