package session

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestGuard(t *testing.T) (*Guard, *fakeClock) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	guard := NewGuard(path)
	clock := newFakeClock(time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC))
	guard.SetClock(clock.Now)
	return guard, clock
}

func TestGuard_SaveAndLoad(t *testing.T) {
	guard, _ := newTestGuard(t)

	require.NoError(t, guard.Save("token-abc"))

	state, err := guard.Load()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, state.Authenticated)
	assert.Equal(t, "token-abc", state.Token)
	assert.Equal(t, "token-abc", guard.Token())
}

func TestGuard_LoadMissingFile(t *testing.T) {
	guard, _ := newTestGuard(t)

	state, err := guard.Load()
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestGuard_LoadDiscardsExpiredSession(t *testing.T) {
	guard, clock := newTestGuard(t)

	require.NoError(t, guard.Save("token-abc"))
	clock.Advance(31 * time.Minute)

	state, err := guard.Load()
	require.NoError(t, err)
	assert.Nil(t, state)

	// The stale file must be gone so a later load stays clean
	state, err = guard.Load()
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestGuard_LoadDiscardsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	guard := NewGuard(path)
	state, err := guard.Load()
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestGuard_ExpiresOnAbsoluteLifetime(t *testing.T) {
	guard, clock := newTestGuard(t)

	require.NoError(t, guard.Save("token-abc"))
	assert.False(t, guard.Expired())

	// Activity alone cannot extend the session past its absolute lifetime
	clock.Advance(29 * time.Minute)
	guard.Touch()
	clock.Advance(2 * time.Minute)
	assert.True(t, guard.Expired())
}

func TestGuard_ExpiresOnInactivity(t *testing.T) {
	guard, clock := newTestGuard(t)

	require.NoError(t, guard.Save("token-abc"))
	clock.Advance(10 * time.Minute)
	guard.Touch()
	assert.False(t, guard.Expired())
}

func TestGuard_ExpiredWithoutSession(t *testing.T) {
	guard, _ := newTestGuard(t)
	assert.True(t, guard.Expired())
}

func TestGuard_Clear(t *testing.T) {
	guard, _ := newTestGuard(t)

	require.NoError(t, guard.Save("token-abc"))
	require.NoError(t, guard.Clear())

	assert.Empty(t, guard.Token())
	state, err := guard.Load()
	require.NoError(t, err)
	assert.Nil(t, state)

	// Clearing an already-cleared session is not an error
	require.NoError(t, guard.Clear())
}

func TestGuard_FilePermissions(t *testing.T) {
	guard, _ := newTestGuard(t)
	require.NoError(t, guard.Save("token-abc"))

	info, err := os.Stat(guard.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
