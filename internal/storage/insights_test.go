package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetWeeklyInsights(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Previous week: 2025-06-02 .. 2025-06-08
	record(t, store, "https://a.com/", "", at(t, "2025-06-03", 10, 0), 10*time.Minute)
	// This week: 2025-06-09 .. 2025-06-15
	record(t, store, "https://a.com/", "", at(t, "2025-06-09", 10, 0), 5*time.Minute)
	record(t, store, "https://b.com/", "", at(t, "2025-06-11", 14, 0), 10*time.Minute)
	_, err := store.AggregateOneDay(ctx, "2025-06-09")
	require.NoError(t, err)

	in, err := store.GetWeeklyInsights(ctx, "2025-06-09", "2025-06-15")
	require.NoError(t, err)

	assert.Equal(t, int64(15*60000), in.ThisWeekTotal)
	assert.Equal(t, int64(10*60000), in.LastWeekTotal)
	assert.InDelta(t, 50.0, in.ChangePercent, 0.001)

	require.Len(t, in.DailyTrend, 7)
	assert.Equal(t, "2025-06-09", in.DailyTrend[0].Date)

	// Compacted and raw rows both land in the heatmap.
	assert.Equal(t, int64(5*60000), in.Heatmap[0][10])
	assert.Equal(t, int64(10*60000), in.Heatmap[2][14])

	require.Len(t, in.TopSitesComparison, 2)
	assert.Equal(t, "b.com", in.TopSitesComparison[0].Hostname)
	assert.Equal(t, int64(0), in.TopSitesComparison[0].LastWeek)
	assert.Equal(t, 0.0, in.TopSitesComparison[0].ChangePercent)
	assert.Equal(t, "a.com", in.TopSitesComparison[1].Hostname)
	assert.InDelta(t, -50.0, in.TopSitesComparison[1].ChangePercent, 0.001)
}

func TestGetWeeklyInsights_NoPreviousWeek(t *testing.T) {
	store := openTestStore(t)

	in, err := store.GetWeeklyInsights(context.Background(), "2025-06-09", "2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, int64(0), in.ThisWeekTotal)
	assert.Equal(t, 0.0, in.ChangePercent)
	assert.Empty(t, in.TopSitesComparison)
}
