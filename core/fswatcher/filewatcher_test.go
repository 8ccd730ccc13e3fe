package fswatcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mustNewFileWatcher(t *testing.T, name string) *FileWatcher {
	t.Helper()
	fw, err := NewFileWatcher(mustNew(t, AllOps), name, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { fw.Close() })
	return fw
}

func waitChanged(t *testing.T, fw *FileWatcher, want bool) {
	t.Helper()
	select {
	case <-fw.Changed():
		if !want {
			t.Fatal("unexpected change")
		}
	case <-time.After(500 * time.Millisecond):
		if want {
			t.Fatal("change timeout")
		}
	}
}

//----------

func TestFileWatcherWrite(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.toml")
	mustCreateFile(t, name)

	fw := mustNewFileWatcher(t, name)

	// burst is coalesced
	for i := 0; i < 5; i++ {
		mustWriteFile(t, name)
	}
	waitChanged(t, fw, true)
	waitChanged(t, fw, false)
}

func TestFileWatcherCreateLater(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.toml")
	fw := mustNewFileWatcher(t, name)

	mustCreateFile(t, name)
	waitChanged(t, fw, true)
}

func TestFileWatcherRenameOver(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.toml")
	tmp := filepath.Join(dir, ".config.toml.swp")
	mustCreateFile(t, name)
	fw := mustNewFileWatcher(t, name)

	if err := os.WriteFile(tmp, []byte("width = 10\n"), 0644); err != nil {
		t.Fatal(err)
	}
	mustRenameFile(t, tmp, name)
	waitChanged(t, fw, true)
}

func TestFileWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.toml")
	other := filepath.Join(dir, "other.toml")
	mustCreateFile(t, name)
	fw := mustNewFileWatcher(t, name)

	mustCreateFile(t, other)
	mustWriteFile(t, other)
	waitChanged(t, fw, false)
}

func TestFileWatcherIgnoresAttrib(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.toml")
	mustCreateFile(t, name)
	fw := mustNewFileWatcher(t, name)

	if err := os.Chmod(name, 0600); err != nil {
		t.Fatal(err)
	}
	waitChanged(t, fw, false)

	mustWriteFile(t, name)
	waitChanged(t, fw, true)
}

func TestFileWatcherMissingDir(t *testing.T) {
	name := filepath.Join(t.TempDir(), "nodir", "config.toml")
	w := mustNew(t, AllOps)
	defer w.Close()
	if _, err := NewFileWatcher(w, name, time.Millisecond, nil); err == nil {
		t.Fatal("expected error")
	}
}
