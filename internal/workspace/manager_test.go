package workspace

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/clipforge/remuxd/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsureBase_CreatesDirectory(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "workspace")
	m := NewManager(base, testLogger())

	if err := m.EnsureBase(); err != nil {
		t.Fatalf("EnsureBase failed: %v", err)
	}

	info, err := os.Stat(base)
	if err != nil {
		t.Fatalf("base directory missing: %v", err)
	}
	if !info.IsDir() {
		t.Error("base path is not a directory")
	}
}

func TestEnsureBase_Idempotent(t *testing.T) {
	m := NewManager(t.TempDir(), testLogger())

	if err := m.EnsureBase(); err != nil {
		t.Fatalf("first EnsureBase failed: %v", err)
	}
	if err := m.EnsureBase(); err != nil {
		t.Errorf("second EnsureBase should succeed, got %v", err)
	}
}

func TestEnsureBase_Impossible(t *testing.T) {
	// A regular file where a parent directory should be.
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	m := NewManager(filepath.Join(blocker, "workspace"), testLogger())

	err := m.EnsureBase()
	if err == nil {
		t.Fatal("EnsureBase should fail when the base cannot be created")
	}
	if !errors.Is(err, domain.ErrWorkspaceInit) {
		t.Errorf("error should wrap ErrWorkspaceInit, got %v", err)
	}
}

func TestAllocate_Extension(t *testing.T) {
	m := NewManager("/tmp/ws", testLogger())

	tests := []struct {
		name string
		hint string
		want string
	}{
		{name: "plain", hint: "mp4", want: ".mp4"},
		{name: "leading dot", hint: ".webm", want: ".webm"},
		{name: "uppercase", hint: "MKV", want: ".mkv"},
		{name: "empty", hint: "", want: ".bin"},
		{name: "whitespace", hint: "  ", want: ".bin"},
		{name: "path traversal", hint: "../../etc/passwd", want: ".bin"},
		{name: "special characters", hint: "mp4?token=abc", want: ".bin"},
		{name: "absurdly long", hint: strings.Repeat("a", 40), want: ".bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Allocate(tt.hint)
			if filepath.Ext(got) != tt.want {
				t.Errorf("Allocate(%q) ext = %q, want %q", tt.hint, filepath.Ext(got), tt.want)
			}
			if filepath.Dir(got) != "/tmp/ws" {
				t.Errorf("Allocate(%q) dir = %q, want /tmp/ws", tt.hint, filepath.Dir(got))
			}
		})
	}
}

func TestAllocate_ConcurrentUniqueness(t *testing.T) {
	const n = 1000

	m := NewManager(t.TempDir(), testLogger())

	var (
		mu    sync.Mutex
		paths = make(map[string]struct{}, n)
		wg    sync.WaitGroup
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := m.Allocate("mp4")
			mu.Lock()
			paths[p] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(paths) != n {
		t.Errorf("expected %d distinct paths, got %d", n, len(paths))
	}
}

func TestRelease_RemovesFile(t *testing.T) {
	m := NewManager(t.TempDir(), testLogger())
	if err := m.EnsureBase(); err != nil {
		t.Fatalf("EnsureBase failed: %v", err)
	}

	path := m.Allocate("mp4")
	if err := os.WriteFile(path, []byte("payload"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	m.Release(path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file should be removed, stat err = %v", err)
	}
}

func TestRelease_MissingFileIsNoop(t *testing.T) {
	m := NewManager(t.TempDir(), testLogger())

	// Never panics or errors for a path that was allocated but not written.
	m.Release(m.Allocate("mp4"))
	m.Release("")
}
