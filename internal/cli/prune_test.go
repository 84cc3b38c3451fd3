package cli

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/dwell/internal/storage"
)

// seedPrune writes one row on each of 06-01, 06-02 and 06-14. With the
// default seven day window the cutoff is 2025-06-09.
func seedPrune(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store := setupStore(t)
	for _, d := range []int{1, 2, 14} {
		recordAt(t, store, "https://a.com/", "", time.Date(2025, 6, d, 10, 15, 0, 0, time.Local), 20*time.Minute)
	}
	return store
}

func TestPrune_DryRun(t *testing.T) {
	store := seedPrune(t)
	cmd := &PruneCommand{globals: testGlobals(false), DryRun: true}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store))
	})

	assert.Contains(t, output, "[DRY RUN]")
	assert.Contains(t, output, "Would fold 2 history rows dated before 2025-06-09 (7 days kept raw)")

	n, err := store.CountHistoryBefore(context.Background(), "2025-06-09")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPrune_FoldsOldDays(t *testing.T) {
	store := seedPrune(t)
	cmd := &PruneCommand{globals: testGlobals(true), MaxDays: 3}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store))
	})

	var res struct {
		Cutoff    string   `json:"cutoff"`
		Processed []string `json:"processed"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	assert.Equal(t, "2025-06-09", res.Cutoff)
	assert.Equal(t, []string{"2025-06-01", "2025-06-02"}, res.Processed)

	ctx := context.Background()
	n, err := store.CountHistoryBefore(ctx, "2025-06-09")
	require.NoError(t, err)
	assert.Zero(t, n)

	hourly, err := store.HourlyStats(ctx, "2025-06-01")
	require.NoError(t, err)
	require.Len(t, hourly, 1)
	assert.Equal(t, 10, hourly[0].Hour)
	assert.Equal(t, int64(20*60_000), hourly[0].Duration)

	// Daily totals survive compaction.
	trend, err := store.GetDailyTrend(ctx, "2025-06-01", "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, int64(20*60_000), trend[0].Duration)
	assert.Equal(t, int64(20*60_000), trend[1].Duration)
}

func TestPrune_RespectsMaxDays(t *testing.T) {
	store := seedPrune(t)
	cmd := &PruneCommand{globals: testGlobals(false), MaxDays: 1}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store))
	})
	assert.Contains(t, output, "Folded 1 days")
	assert.Contains(t, output, "2025-06-01")

	n, err := store.CountHistoryBefore(context.Background(), "2025-06-09")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPrune_NothingToDo(t *testing.T) {
	store := setupStore(t)
	cmd := &PruneCommand{globals: testGlobals(false), MaxDays: 3}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), store))
	})
	assert.Contains(t, output, "Nothing to fold")
}

func TestRetention_ShowAndSet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	output := captureOutput(t, func() {
		require.NoError(t, (&RetentionCommand{globals: testGlobals(false)}).executeWithStore(ctx, store))
	})
	assert.Contains(t, output, "Raw retention: 7 days")

	output = captureOutput(t, func() {
		require.NoError(t, (&RetentionCommand{globals: testGlobals(true), Set: 3}).executeWithStore(ctx, store))
	})
	assert.JSONEq(t, `{"raw_days":3}`, output)

	err := (&RetentionCommand{globals: testGlobals(false), Set: -2}).executeWithStore(ctx, store)
	assert.ErrorIs(t, err, storage.ErrValidation)

	days, err := store.RawRetentionDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, days)
}
