// Package session enforces the client-side dashboard session policy:
// absolute lifetime and inactivity timeout, whichever triggers first.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// Lifetime bounds both the absolute session age and the allowed
	// inactivity. It mirrors the server's session token lifetime.
	Lifetime = 30 * time.Minute

	// CheckInterval is how often Watch re-evaluates the inactivity bound
	CheckInterval = 60 * time.Second
)

// State is the persisted session document.
type State struct {
	Authenticated bool      `json:"authenticated"`
	Timestamp     time.Time `json:"timestamp"`
	Token         string    `json:"token"`
}

// Guard owns the stored session and the activity clock.
type Guard struct {
	path string

	mu           sync.Mutex
	state        *State
	lastActivity time.Time
	now          func() time.Time
}

// DefaultPath returns the session file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(dir, "urochithi", "session.json"), nil
}

// NewGuard creates a Guard persisting to path.
func NewGuard(path string) *Guard {
	return &Guard{
		path: path,
		now:  time.Now,
	}
}

// SetClock overrides the guard's time source. Used by tests.
func (g *Guard) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
}

// Load reads the stored session. A session older than Lifetime is discarded
// on the spot and (nil, nil) is returned so the caller re-authenticates.
func (g *Guard) Load() (*State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := os.ReadFile(g.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		// Corrupt session file: treat as absent
		_ = os.Remove(g.path)
		return nil, nil
	}

	now := g.now()
	if !state.Authenticated || now.Sub(state.Timestamp) >= Lifetime {
		_ = os.Remove(g.path)
		return nil, nil
	}

	g.state = &state
	g.lastActivity = now
	return &state, nil
}

// Save stores a fresh session and starts the activity clock.
func (g *Guard) Save(token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	state := &State{
		Authenticated: true,
		Timestamp:     now,
		Token:         token,
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(g.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	if err := os.WriteFile(g.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}

	g.state = state
	g.lastActivity = now
	return nil
}

// Touch records user activity for the inactivity bound.
func (g *Guard) Touch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastActivity = g.now()
}

// Token returns the held session token, or "" when no session is active.
func (g *Guard) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == nil {
		return ""
	}
	return g.state.Token
}

// Expired reports whether either bound has triggered: absolute age of the
// stored session, or inactivity since the last Touch.
func (g *Guard) Expired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == nil {
		return true
	}

	now := g.now()
	if now.Sub(g.state.Timestamp) >= Lifetime {
		return true
	}
	return now.Sub(g.lastActivity) >= Lifetime
}

// Clear removes the stored session (explicit logout).
func (g *Guard) Clear() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state = nil
	err := os.Remove(g.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

// Watch checks the session every CheckInterval and calls onExpire once when
// a bound triggers, then returns. It also returns when ctx is cancelled.
func (g *Guard) Watch(ctx context.Context, onExpire func()) {
	ticker := time.NewTicker(CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if g.Expired() {
				_ = g.Clear()
				onExpire()
				return
			}
		}
	}
}
