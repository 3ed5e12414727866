package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveThenOpenNestedKey(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Save(context.Background(), "jan/490/4901.csv", strings.NewReader("jan13\n")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := s.Open(context.Background(), "jan/490/4901.csv")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	if string(raw) != "jan13\n" {
		t.Fatalf("unexpected content %q", raw)
	}
}

func TestOpenMissingShard(t *testing.T) {
	s, _ := New(t.TempDir())
	if _, err := s.Open(context.Background(), "jan/490/4909.csv"); err == nil {
		t.Fatalf("expected error for missing shard")
	}
}

func TestKeyCannotEscapeRoot(t *testing.T) {
	s, _ := New(t.TempDir())
	if _, err := s.Open(context.Background(), "../../etc/passwd"); err == nil || !strings.Contains(err.Error(), "escapes") {
		t.Fatalf("expected escape error, got %v", err)
	}
}
