package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/productcatalog/pkg/logger"
)

const (
	// DefaultWorkspaceIdleTTL matches the session cookie lifetime: once the
	// cookie is gone nobody can reach the workspace again.
	DefaultWorkspaceIdleTTL = 7 * 24 * time.Hour

	// DefaultMaxWorkspaces bounds memory when callers create workspaces faster
	// than they expire.
	DefaultMaxWorkspaces = 10000
)

// WorkspaceLimits bounds how long and how many workspaces stay in memory.
// Zero fields take the package defaults.
type WorkspaceLimits struct {
	IdleTTL time.Duration
	Max     int
}

type workspace struct {
	facade   *CatalogFacade
	lastUsed time.Time
}

// Workspaces holds one CatalogFacade per workspace. A workspace is the
// explicit catalog session an API caller or shell works in; nothing is shared
// between workspaces.
//
// A workspace idle for longer than IdleTTL is dropped by Sweep. When Max
// workspaces are open, opening another drops the least recently used one.
// A dropped workspace that is opened again starts empty.
type Workspaces struct {
	mu        sync.Mutex
	open      map[uuid.UUID]*workspace
	limits    WorkspaceLimits
	publisher Publisher
	log       logger.Logger
	now       func() time.Time
}

// NewWorkspaces returns an empty workspace set with default limits. publisher may be nil.
func NewWorkspaces(publisher Publisher, log logger.Logger) *Workspaces {
	return NewWorkspacesWithLimits(publisher, log, WorkspaceLimits{})
}

// NewWorkspacesWithLimits is NewWorkspaces with explicit limits.
func NewWorkspacesWithLimits(publisher Publisher, log logger.Logger, limits WorkspaceLimits) *Workspaces {
	if limits.IdleTTL <= 0 {
		limits.IdleTTL = DefaultWorkspaceIdleTTL
	}
	if limits.Max <= 0 {
		limits.Max = DefaultMaxWorkspaces
	}
	return &Workspaces{
		open:      make(map[uuid.UUID]*workspace),
		limits:    limits,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Create starts a new, empty workspace.
func (w *Workspaces) Create() *CatalogFacade {
	return w.Open(uuid.New())
}

// Open returns the facade for id, creating an empty one on first use, and
// marks the workspace as used.
func (w *Workspaces) Open(id uuid.UUID) *CatalogFacade {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if ws, ok := w.open[id]; ok {
		ws.lastUsed = now
		return ws.facade
	}
	if len(w.open) >= w.limits.Max {
		w.evictOldest()
	}
	f := NewCatalogFacade(id, w.publisher, w.log)
	w.open[id] = &workspace{facade: f, lastUsed: now}
	w.log.Debug("workspace opened", "workspace_id", id.String())
	return f
}

// evictOldest drops the least recently used workspace. Callers hold w.mu.
func (w *Workspaces) evictOldest() {
	var (
		oldestID uuid.UUID
		oldest   time.Time
		found    bool
	)
	for id, ws := range w.open {
		if !found || ws.lastUsed.Before(oldest) {
			oldestID, oldest, found = id, ws.lastUsed, true
		}
	}
	if !found {
		return
	}
	delete(w.open, oldestID)
	w.log.Info("workspace evicted", "workspace_id", oldestID.String(), "reason", "capacity", "max", w.limits.Max)
}

// Sweep drops every workspace idle for longer than IdleTTL and reports how
// many were dropped.
func (w *Workspaces) Sweep() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-w.limits.IdleTTL)
	dropped := 0
	for id, ws := range w.open {
		if ws.lastUsed.Before(cutoff) {
			delete(w.open, id)
			dropped++
		}
	}
	if dropped > 0 {
		w.log.Info("idle workspaces expired", "count", dropped, "remaining", len(w.open))
	}
	return dropped
}

// Run calls Sweep every interval until ctx is cancelled. A non-positive
// interval sweeps every five minutes.
func (w *Workspaces) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Len reports the number of open workspaces.
func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.open)
}
