package filebus

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadSeekRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")

	wf, err := Open(path, ModeWrite|ModeCreate|ModeTrunc)
	if err != nil {
		t.Fatalf("Open for write: %v", err)
	}
	if _, err := wf.Write([]byte("hello world")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := wf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path, ModeRead)
	if err != nil {
		t.Fatalf("Open for read: %v", err)
	}
	defer rf.Close()

	if _, err := rf.Seek(6, WhenceStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 5)
	n, err := rf.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "world" {
		t.Fatalf("expected 'world', got %q", buf[:n])
	}
}

func TestOpenRejectsZeroMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	if _, err := Open(path, 0); err == nil {
		t.Fatal("expected a mode with neither read nor write bit set to be rejected")
	}
}

func TestSeekRejectsInvalidWhence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	f, err := Open(path, ModeWrite|ModeCreate)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	if _, err := f.Seek(0, Whence(99)); err == nil {
		t.Fatal("expected an invalid whence value to be rejected")
	}
}

func TestGlobFindsMatches(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0600); err != nil {
			t.Fatalf("seed file: %v", err)
		}
	}
	matches, err := Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %v", len(matches), matches)
	}
}

func TestGlobNoMatchIsAnError(t *testing.T) {
	dir := t.TempDir()
	if _, err := Glob(filepath.Join(dir, "*.nonexistent")); err == nil {
		t.Fatal("expected no matches to return an error")
	}
}
