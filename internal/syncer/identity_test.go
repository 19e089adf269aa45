package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/offlinemirror/internal/catalog"
	"github.com/mrlokans/offlinemirror/internal/state"
)

func startResolver(t *testing.T, env *testEnv, identity *state.Cell[*catalog.User]) {
	t.Helper()
	r := NewIdentityResolver(env.api, env.settings, identity, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("resolver did not stop")
		}
	})
}

func TestIdentityResolver_ResolvesWhenOnline(t *testing.T) {
	env := setupTestDB(t)
	identity := state.NewCell[*catalog.User](nil)

	startResolver(t, env, identity)

	require.Eventually(t, func() bool { return identity.Get() != nil }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "u1", identity.Get().ID)
	assert.Equal(t, "u1", env.settings.ActiveUserID())
}

func TestIdentityResolver_RetriesTransientFailures(t *testing.T) {
	env := setupTestDB(t)
	env.api.setErr("me:", &catalog.ServerError{StatusCode: 503, Message: "maintenance"})
	identity := state.NewCell[*catalog.User](nil)

	startResolver(t, env, identity)

	require.Eventually(t, func() bool { return env.api.Calls("me:") >= 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Nil(t, identity.Get())

	env.api.setErr("me:", nil)
	require.Eventually(t, func() bool { return identity.Get() != nil }, 5*time.Second, 10*time.Millisecond)
}

func TestIdentityResolver_UnauthorizedIsNotRetried(t *testing.T) {
	env := setupTestDB(t)
	env.api.setErr("me:", catalog.ErrUnauthorized)
	identity := state.NewCell[*catalog.User](nil)

	startResolver(t, env, identity)

	require.Eventually(t, func() bool { return env.api.Calls("me:") == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, env.api.Calls("me:"))
	assert.Nil(t, identity.Get())
}

func TestIdentityResolver_OfflineModeDropsIdentity(t *testing.T) {
	env := setupTestDB(t)
	identity := state.NewCell[*catalog.User](nil)
	ctx := context.Background()

	startResolver(t, env, identity)
	require.Eventually(t, func() bool { return identity.Get() != nil }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, env.settings.SetOfflineMode(ctx, true))
	require.Eventually(t, func() bool { return identity.Get() == nil }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, env.settings.SetOfflineMode(ctx, false))
	require.Eventually(t, func() bool { return identity.Get() != nil }, 5*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, env.api.Calls("me:"), 2)
}

func TestIdentityResolver_String(t *testing.T) {
	r := NewIdentityResolver(nil, nil, nil, 0)
	assert.Equal(t, "identity-resolver", r.String())
	assert.Equal(t, DefaultIdentityRetry, r.retry)
}
