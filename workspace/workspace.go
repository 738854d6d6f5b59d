// Package workspace manages isolated per-request directories for the
// conversion pipeline. Each request gets a disjoint directory under a
// configurable root, named by a generated request ID; the uploaded input,
// the engine's profile directory and the produced output all live inside
// it, and the whole tree is removed when the request finishes.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/hazyhaar/convd/idgen"
)

// Manager creates and destroys request workspaces under a fixed root.
type Manager struct {
	root   string
	newID  idgen.Generator
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator sets a custom generator for workspace IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(m *Manager) { m.newID = gen }
}

// WithLogger sets the logger used for destruction failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager rooted at root. The root itself is created
// lazily on the first Create call.
func NewManager(root string, opts ...Option) *Manager {
	m := &Manager{
		root:   root,
		newID:  idgen.Prefixed("req_", idgen.Default),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Root returns the configured root directory.
func (m *Manager) Root() string { return m.root }

// Workspace is one request's isolated directory tree. The directory name is
// derived solely from the generated ID, never from client input, so the
// workspace path itself cannot be traversed into.
type Workspace struct {
	ID  string
	Dir string

	logger    *slog.Logger
	destroyed sync.Once
}

// Create makes a fresh workspace directory (and any missing parents).
func (m *Manager) Create() (*Workspace, error) {
	id := m.newID()
	dir := filepath.Join(m.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace create %s: %w", id, err)
	}
	return &Workspace{ID: id, Dir: dir, logger: m.logger}, nil
}

// ProfileDir returns the engine profile directory path inside the
// workspace. Each invocation gets its own profile so concurrent requests
// never contend on the engine's single-profile lock. The engine creates
// the directory itself.
func (w *Workspace) ProfileDir() string {
	return filepath.Join(w.Dir, "user")
}

// Join returns the path of name inside the workspace. name must already be
// sanitized to a bare basename.
func (w *Workspace) Join(name string) string {
	return filepath.Join(w.Dir, name)
}

// Destroy removes the workspace tree. Best-effort: failures are logged and
// swallowed so they never mask the error that led here. Safe to call more
// than once; only the first call does work.
func (w *Workspace) Destroy() {
	w.destroyed.Do(func() {
		if err := os.RemoveAll(w.Dir); err != nil {
			logger := w.logger
			if logger == nil {
				logger = slog.Default()
			}
			logger.Error("workspace destroy failed", "workspace_id", w.ID, "dir", w.Dir, "error", err)
		}
	})
}
