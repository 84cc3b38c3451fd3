package storage

import "time"

// Durations and timestamps are stored as integer milliseconds (unix epoch
// for timestamps) so snapshots stay byte-compatible with the extension's
// export format.

// HistoryLog is one raw session segment. Rows are append-only and are only
// removed by the retention job or an explicit site erasure.
type HistoryLog struct {
	ID          int64  `db:"id" json:"id"`
	Date        string `db:"date" json:"date"`
	Hostname    string `db:"hostname" json:"hostname"`
	Path        string `db:"path" json:"path"`
	StartTime   int64  `db:"start_time" json:"startTime"`
	Duration    int64  `db:"duration" json:"duration"`
	Title       string `db:"title" json:"title,omitempty"`
	EventSource string `db:"event_source" json:"eventSource,omitempty"`
}

// Start returns the segment start as a local time.
func (h HistoryLog) Start() time.Time { return time.UnixMilli(h.StartTime) }

// SiteStat is the per-(date, hostname) rollup. In aggregated query results
// Date is left empty.
type SiteStat struct {
	Date      string `db:"date" json:"date,omitempty"`
	Hostname  string `db:"hostname" json:"hostname"`
	Duration  int64  `db:"duration" json:"duration"`
	LastVisit int64  `db:"last_visit" json:"lastVisit"`
}

// PageStat is the per-(date, hostname, path) rollup.
type PageStat struct {
	Date     string `db:"date" json:"date"`
	Hostname string `db:"hostname" json:"hostname"`
	Path     string `db:"path" json:"path"`
	FullPath string `db:"full_path" json:"fullPath"`
	Duration int64  `db:"duration" json:"duration"`
	Title    string `db:"title" json:"title,omitempty"`
}

// HourlyStat is a compacted rollup written by the retention job.
type HourlyStat struct {
	Date     string `db:"date" json:"date"`
	Hour     int    `db:"hour" json:"hour"`
	Duration int64  `db:"duration" json:"duration"`
}

// Activity is one closed session handed to RecordActivity.
type Activity struct {
	URL       string
	Title     string
	Duration  time.Duration
	StartTime time.Time // zero means "ended now"
	Source    string
}

// Segment is the part of an activity that falls on a single calendar date.
type Segment struct {
	Date     string
	Start    time.Time
	Duration time.Duration
}

// DailyTotal is one point of a daily trend.
type DailyTotal struct {
	Date     string `db:"date" json:"date"`
	Duration int64  `db:"duration" json:"duration"`
}

// HourBucket is one hour-of-day slot of an hourly trend.
type HourBucket struct {
	Hour     int   `json:"hour"`
	Duration int64 `json:"duration"`
}

// HistoryQuery filters GetHistoryLogs. Hostname and Path are optional.
type HistoryQuery struct {
	StartDate string
	EndDate   string
	Hostname  string
	Path      string
	Limit     int
}

// RangeStats combines the top sites and the daily trend of one range.
type RangeStats struct {
	Sites []SiteStat   `json:"sites"`
	Trend []DailyTotal `json:"trend"`
}

// Stats holds diagnostic counters about the database.
type Stats struct {
	HistoryCount      int64      `json:"historyCount"`
	SitesCount        int64      `json:"sitesCount"`
	PagesCount        int64      `json:"pagesCount"`
	HourlyCount       int64      `json:"hourlyCount"`
	OldestDate        string     `json:"oldestDate,omitempty"`
	NewestDate        string     `json:"newestDate,omitempty"`
	DatabaseSizeBytes int64      `json:"databaseSizeBytes"`
	RawRetentionDays  int        `json:"rawRetentionDays"`
	TopSites          []SiteStat `json:"topSites"`
}
