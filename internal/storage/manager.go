package storage

import (
	"context"
	"log"
	"sync"
	"time"

	"watchwise-backend/internal/models"
)

// ProbePolicy controls how often the Manager re-checks the remote backend
// before serving an operation.
type ProbePolicy string

const (
	// ProbeAlways re-probes before every operation. Costs one round trip per
	// call but recovers from an outage on the very next request.
	ProbeAlways ProbePolicy = "always"

	// ProbeCached trusts the last observed reachability for ProbeInterval
	// before probing again.
	ProbeCached ProbePolicy = "cached"
)

type Options struct {
	ProbePolicy   ProbePolicy
	ProbeInterval time.Duration // only used with ProbeCached
	RemoteTimeout time.Duration // bound on the probe and each remote operation
}

// Manager is the persistence façade. Every read and write of viewing
// sessions and pause insights goes through it; it probes the remote backend
// and silently degrades to the local store when the backend is missing or
// failing, inside the same call. Callers never see "backend unavailable" as
// an error: the only failure that surfaces is a local-path write error,
// because there is nothing left to fall back to.
//
// Concurrency: each store serializes its own file or row access, but a
// read-modify-write inside one Save call is not atomic across the two media.
// Two concurrent saves for the same user can interleave and the later writer
// wins; no ordering is promised across concurrent calls.
type Manager struct {
	remote Store // nil when the deployment has no backend configured
	local  Store
	opts   Options

	mu        sync.Mutex
	available bool
	lastProbe time.Time
}

func NewManager(remote, local Store, opts Options) *Manager {
	if opts.ProbePolicy == "" {
		opts.ProbePolicy = ProbeAlways
	}
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = 30 * time.Second
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = 3 * time.Second
	}
	return &Manager{
		remote: remote,
		local:  local,
		opts:   opts,
		// Optimistic until the first probe says otherwise.
		available: remote != nil,
	}
}

// IsAvailable reports the last observed reachability without probing.
func (m *Manager) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// CheckAvailability probes the remote backend and updates the reachability
// flag. Safe to call repeatedly and concurrently. The failure kind only
// affects the log line; every failure degrades the same way.
func (m *Manager) CheckAvailability(ctx context.Context) bool {
	if m.remote == nil {
		m.setAvailable(false, "remote store not configured for this deployment")
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.opts.RemoteTimeout)
	defer cancel()

	if err := m.remote.Ping(probeCtx); err != nil {
		m.setAvailable(false, "remote store unreachable: "+err.Error())
		return false
	}

	m.setAvailable(true, "")
	return true
}

// setAvailable records the probe outcome, logging only on transitions so a
// long outage does not flood the log.
func (m *Manager) setAvailable(v bool, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.available != v {
		if v {
			log.Println("storage: remote backend reachable, leaving local fallback")
		} else {
			log.Printf("storage: falling back to local storage (%s)", reason)
		}
	}
	m.available = v
	m.lastProbe = time.Now()
}

// useRemote decides whether to attempt the remote path for this operation,
// probing according to the configured policy.
func (m *Manager) useRemote(ctx context.Context) bool {
	if m.remote == nil {
		m.setAvailable(false, "remote store not configured for this deployment")
		return false
	}

	if m.opts.ProbePolicy == ProbeCached {
		m.mu.Lock()
		fresh := time.Since(m.lastProbe) < m.opts.ProbeInterval && !m.lastProbe.IsZero()
		available := m.available
		m.mu.Unlock()
		if fresh {
			return available
		}
	}

	return m.CheckAvailability(ctx)
}

// remoteCtx bounds a remote operation so a hung backend cannot delay the
// fallback indefinitely.
func (m *Manager) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.opts.RemoteTimeout)
}

// ListSessions returns the user's sessions, most recently watched first,
// capped at MaxSessionsPerUser. Absence and failure degrade to an empty
// result; the only returned error is a precondition violation.
func (m *Manager) ListSessions(ctx context.Context, userID string) ([]models.ViewingSession, error) {
	if userID == "" {
		return nil, &ValidationError{Message: "user_id is required"}
	}

	if m.useRemote(ctx) {
		rctx, cancel := m.remoteCtx(ctx)
		sessions, err := m.remote.ListSessions(rctx, userID)
		cancel()
		if err == nil {
			return capSessions(sessions), nil
		}
		m.setAvailable(false, "list sessions failed: "+err.Error())
	}

	sessions, err := m.local.ListSessions(ctx, userID)
	if err != nil {
		// Reads never raise: a broken local read is the same as no data.
		log.Printf("storage: local session read failed for user %s: %v", userID, err)
		return []models.ViewingSession{}, nil
	}
	return capSessions(sessions), nil
}

// SaveSession creates the session or updates the existing record for the
// same (user, video) pair. A remote failure is absorbed by retrying against
// the local store within this call; only a local write failure is returned.
func (m *Manager) SaveSession(ctx context.Context, s *models.ViewingSession) error {
	if err := validateSession(s); err != nil {
		return err
	}

	if m.useRemote(ctx) {
		rctx, cancel := m.remoteCtx(ctx)
		err := m.remote.SaveSession(rctx, s)
		cancel()
		if err == nil {
			return nil
		}
		m.setAvailable(false, "save session failed: "+err.Error())
	}

	return m.local.SaveSession(ctx, s)
}

// ListInsights returns a session's insights ascending by pause timestamp.
// Same degradation contract as ListSessions.
func (m *Manager) ListInsights(ctx context.Context, sessionID string) ([]models.PauseInsight, error) {
	if sessionID == "" {
		return nil, &ValidationError{Message: "session_id is required"}
	}

	if m.useRemote(ctx) {
		rctx, cancel := m.remoteCtx(ctx)
		insights, err := m.remote.ListInsights(rctx, sessionID)
		cancel()
		if err == nil {
			return insights, nil
		}
		m.setAvailable(false, "list insights failed: "+err.Error())
	}

	insights, err := m.local.ListInsights(ctx, sessionID)
	if err != nil {
		log.Printf("storage: local insight read failed for session %s: %v", sessionID, err)
		return []models.PauseInsight{}, nil
	}
	return insights, nil
}

// SaveInsight appends the insight to its session. Append-only: an existing
// insight is never overwritten by either medium.
func (m *Manager) SaveInsight(ctx context.Context, in *models.PauseInsight) error {
	if err := validateInsight(in); err != nil {
		return err
	}

	if m.useRemote(ctx) {
		rctx, cancel := m.remoteCtx(ctx)
		err := m.remote.SaveInsight(rctx, in)
		cancel()
		if err == nil {
			return nil
		}
		m.setAvailable(false, "save insight failed: "+err.Error())
	}

	return m.local.SaveInsight(ctx, in)
}

func capSessions(sessions []models.ViewingSession) []models.ViewingSession {
	if sessions == nil {
		return []models.ViewingSession{}
	}
	if len(sessions) > MaxSessionsPerUser {
		return sessions[:MaxSessionsPerUser]
	}
	return sessions
}
