package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dwell/internal/blocklist"
)

func TestBlock_AddListRemove(t *testing.T) {
	store := setupStore(t, "bank.com")
	ctx := context.Background()

	output := captureOutput(t, func() {
		require.NoError(t, (&BlockAddCommand{globals: testGlobals(false)}).executeWithStore(ctx, store,
			[]string{"https://www.Mail.example.org/inbox", "*.corp.internal"}))
	})
	assert.Contains(t, output, "Blocked mail.example.org")
	assert.Contains(t, output, "Blocked *.corp.internal")

	output = captureOutput(t, func() {
		require.NoError(t, (&BlockListCommand{globals: testGlobals(true)}).executeWithStore(ctx, store))
	})
	assert.JSONEq(t, `{"entries":["*.corp.internal","bank.com","mail.example.org"]}`, output)

	output = captureOutput(t, func() {
		require.NoError(t, (&BlockRemoveCommand{globals: testGlobals(false)}).executeWithStore(ctx, store,
			[]string{"bank.com", "nothere.com"}))
	})
	assert.Contains(t, output, "Unblocked bank.com")
	assert.Contains(t, output, "Not in blocklist: nothere.com")

	list, err := store.Blocklist(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mail.example.org", "*.corp.internal"}, list)
}

func TestBlock_InvalidEntry(t *testing.T) {
	store := setupStore(t)
	err := (&BlockAddCommand{globals: testGlobals(false)}).executeWithStore(context.Background(), store, []string{"bad host"})
	assert.ErrorIs(t, err, blocklist.ErrInvalidEntry)
}

func TestBlock_ListEmpty(t *testing.T) {
	store := setupStore(t)
	output := captureOutput(t, func() {
		require.NoError(t, (&BlockListCommand{globals: testGlobals(false)}).executeWithStore(context.Background(), store))
	})
	assert.Contains(t, output, "Blocklist is empty.")
}

func TestBlock_RequiresArgs(t *testing.T) {
	assert.Error(t, (&BlockAddCommand{globals: testGlobals(false)}).Execute(nil))
	assert.Error(t, (&BlockRemoveCommand{globals: testGlobals(false)}).Execute(nil))
}

func TestBlock_AddReachesRunningFilter(t *testing.T) {
	store := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	running := blocklist.New(store)
	require.NoError(t, running.Reload(ctx))
	go running.Watch(ctx, 10*time.Millisecond, nil)

	captureOutput(t, func() {
		require.NoError(t, (&BlockAddCommand{globals: testGlobals(false)}).executeWithStore(ctx, store, []string{"bank.com"}))
	})

	assert.Eventually(t, func() bool {
		return running.IsHostnameBlocked("bank.com")
	}, 2*time.Second, 10*time.Millisecond)
}
