package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/clipforge/remuxd/internal/domain"
)

// fallbackExt is used when no usable extension can be derived for a file.
const fallbackExt = "bin"

// Manager owns a directory for transient pipeline files. Allocated paths are
// unique per call, so concurrent requests never alias each other's files.
type Manager struct {
	baseDir string
	logger  *slog.Logger
}

// NewManager creates a workspace manager rooted at baseDir.
func NewManager(baseDir string, logger *slog.Logger) *Manager {
	return &Manager{
		baseDir: baseDir,
		logger:  logger,
	}
}

// BaseDir returns the workspace root directory.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// EnsureBase idempotently creates the base directory and its parents.
// An already existing directory is success.
func (m *Manager) EnsureBase() error {
	if err := os.MkdirAll(m.baseDir, 0755); err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrWorkspaceInit, m.baseDir, err)
	}
	return nil
}

// Allocate returns a collision-free path under the base directory. suffixHint
// picks the file extension; a missing or malformed hint falls back to a
// generic one. The file itself is not created.
func (m *Manager) Allocate(suffixHint string) string {
	name := uuid.New().String() + "." + sanitizeExt(suffixHint)
	return filepath.Join(m.baseDir, name)
}

// Release deletes the file at path if present. Deletion failure is logged
// and never escalated: a leaked temp file is recoverable.
func (m *Manager) Release(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("failed to remove workspace file", "path", path, "error", err)
	}
}

// sanitizeExt normalizes an extension hint ("mp4", ".mp4", "MP4") to a bare
// lowercase alphanumeric extension, falling back when the hint is unusable.
func sanitizeExt(hint string) string {
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(hint), "."))
	if ext == "" || len(ext) > 16 {
		return fallbackExt
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return fallbackExt
		}
	}
	return ext
}
