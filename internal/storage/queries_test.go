package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAggregatedSites_OrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record(t, store, "https://b.com/", "", at(t, "2025-06-02", 10, 0), time.Minute)
	record(t, store, "https://a.com/", "", at(t, "2025-06-03", 10, 0), time.Minute)
	record(t, store, "https://c.com/", "", at(t, "2025-06-01", 10, 0), 5*time.Minute)
	record(t, store, "https://d.com/", "", at(t, "2025-06-01", 11, 0), 30*time.Second)

	sites, err := store.GetAggregatedSites(ctx, "2025-06-01", "2025-06-03", 3)
	require.NoError(t, err)
	require.Len(t, sites, 3)

	assert.Equal(t, "c.com", sites[0].Hostname)
	// a.com and b.com tie; b.com appears first in the range.
	assert.Equal(t, "b.com", sites[1].Hostname)
	assert.Equal(t, "a.com", sites[2].Hostname)
	assert.Empty(t, sites[0].Date)
}

func TestGetAggregatedSites_SumsAcrossDays(t *testing.T) {
	store := openTestStore(t)

	record(t, store, "https://a.com/", "", at(t, "2025-06-01", 10, 0), time.Minute)
	record(t, store, "https://a.com/", "", at(t, "2025-06-02", 10, 0), time.Minute)
	record(t, store, "https://a.com/", "", at(t, "2025-06-05", 10, 0), time.Minute)

	sites, err := store.GetAggregatedSites(context.Background(), "2025-06-01", "2025-06-02", 0)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, int64(2*60000), sites[0].Duration)
}

func TestGetAggregatedSites_InvalidDate(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetAggregatedSites(context.Background(), "June 1", "2025-06-02", 10)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetDailyTrend_ZeroFilled(t *testing.T) {
	store := openTestStore(t)

	record(t, store, "https://a.com/", "", at(t, "2025-06-01", 10, 0), time.Minute)
	record(t, store, "https://b.com/", "", at(t, "2025-06-03", 10, 0), 2*time.Minute)

	trend, err := store.GetDailyTrend(context.Background(), "2025-06-01", "2025-06-04")
	require.NoError(t, err)
	assert.Equal(t, []DailyTotal{
		{Date: "2025-06-01", Duration: 60000},
		{Date: "2025-06-02", Duration: 0},
		{Date: "2025-06-03", Duration: 120000},
		{Date: "2025-06-04", Duration: 0},
	}, trend)
}

func TestGetDailyTrend_EmptyWhenReversed(t *testing.T) {
	store := openTestStore(t)

	trend, err := store.GetDailyTrend(context.Background(), "2025-06-04", "2025-06-01")
	require.NoError(t, err)
	assert.Empty(t, trend)
}

func TestGetDailyTrend_RejectsOversizedRange(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetDailyTrend(context.Background(), "0001-01-01", "9999-12-31")
	assert.ErrorIs(t, err, ErrValidation)

	end, err := AddDays("2015-01-01", maxTrendDays-1)
	require.NoError(t, err)
	trend, err := store.GetDailyTrend(context.Background(), "2015-01-01", end)
	require.NoError(t, err)
	assert.Len(t, trend, maxTrendDays)
}

func TestGetRangeStats(t *testing.T) {
	store := openTestStore(t)

	record(t, store, "https://a.com/", "", at(t, "2025-06-01", 10, 0), time.Minute)

	stats, err := store.GetRangeStats(context.Background(), "2025-06-01", "2025-06-02", 10)
	require.NoError(t, err)
	require.Len(t, stats.Sites, 1)
	require.Len(t, stats.Trend, 2)
}

func TestGetHourlyTrend_CombinesRawAndCompacted(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record(t, store, "https://a.com/", "", at(t, "2025-06-01", 9, 15), time.Minute)
	_, err := store.AggregateOneDay(ctx, "2025-06-01")
	require.NoError(t, err)
	record(t, store, "https://a.com/", "", at(t, "2025-06-01", 9, 45), time.Minute)
	record(t, store, "https://a.com/", "", at(t, "2025-06-01", 14, 0), time.Minute)

	hours, err := store.GetHourlyTrend(ctx, "2025-06-01")
	require.NoError(t, err)
	require.Len(t, hours, 24)
	assert.Equal(t, 9, hours[9].Hour)
	assert.Equal(t, int64(2*60000), hours[9].Duration)
	assert.Equal(t, int64(60000), hours[14].Duration)
	assert.Equal(t, int64(0), hours[0].Duration)
}

func TestGetAggregatedPages_LatestTitleWins(t *testing.T) {
	store := openTestStore(t)

	record(t, store, "https://a.com/one", "Old", at(t, "2025-06-01", 10, 0), time.Minute)
	record(t, store, "https://a.com/one", "New", at(t, "2025-06-02", 10, 0), time.Minute)
	record(t, store, "https://a.com/two", "Two", at(t, "2025-06-02", 11, 0), 5*time.Minute)
	record(t, store, "https://b.com/one", "Other", at(t, "2025-06-02", 12, 0), time.Minute)

	pages, err := store.GetAggregatedPages(context.Background(), "a.com", "2025-06-01", "2025-06-02")
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, "/two", pages[0].Path)
	assert.Equal(t, "/one", pages[1].Path)
	assert.Equal(t, int64(2*60000), pages[1].Duration)
	assert.Equal(t, "New", pages[1].Title)
	assert.Equal(t, "2025-06-02", pages[1].Date)
}

func TestGetHistoryLogs_NewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record(t, store, "https://a.com/", "", at(t, "2025-06-01", 10, 0), time.Minute)
	record(t, store, "https://b.com/", "", at(t, "2025-06-02", 10, 0), time.Minute)
	record(t, store, "https://a.com/x", "", at(t, "2025-06-02", 11, 0), time.Minute)

	logs, err := store.GetHistoryLogs(ctx, HistoryQuery{StartDate: "2025-06-01", EndDate: "2025-06-02"})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "/x", logs[0].Path)
	assert.Equal(t, "b.com", logs[1].Hostname)
	assert.Equal(t, "2025-06-01", logs[2].Date)
}

func TestGetHistoryLogs_ByHostnameAndPath(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record(t, store, "https://a.com/", "", at(t, "2025-06-01", 10, 0), time.Minute)
	record(t, store, "https://a.com/x", "", at(t, "2025-06-01", 11, 0), time.Minute)
	record(t, store, "https://a.com/x", "", at(t, "2025-06-02", 9, 0), time.Minute)
	record(t, store, "https://b.com/x", "", at(t, "2025-06-02", 10, 0), time.Minute)

	logs, err := store.GetHistoryLogs(ctx, HistoryQuery{StartDate: "2025-06-01", EndDate: "2025-06-02", Hostname: "a.com"})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "2025-06-02", logs[0].Date)

	logs, err = store.GetHistoryLogs(ctx, HistoryQuery{StartDate: "2025-06-01", EndDate: "2025-06-02", Hostname: "a.com", Path: "/x"})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, "/x", l.Path)
	}

	logs, err = store.GetHistoryLogs(ctx, HistoryQuery{StartDate: "2025-06-01", EndDate: "2025-06-02", Path: "/x"})
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestGetHistoryLogs_Limit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		record(t, store, "https://a.com/", "", at(t, "2025-06-01", 10+i, 0), time.Minute)
	}

	logs, err := store.GetHistoryLogs(ctx, HistoryQuery{StartDate: "2025-06-01", EndDate: "2025-06-01", Limit: 2})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, at(t, "2025-06-01", 14, 0).UnixMilli(), logs[0].StartTime)

	logs, err = store.GetHistoryLogs(ctx, HistoryQuery{StartDate: "2025-06-01", EndDate: "2025-06-01", Hostname: "a.com", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}
