package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/runnerr0/dwell/internal/blocklist"
	"github.com/runnerr0/dwell/internal/retention"
	"github.com/runnerr0/dwell/internal/session"
	"github.com/runnerr0/dwell/internal/storage"
	"github.com/runnerr0/dwell/internal/tracker"
)

var errUnavailable = errors.New("not available in this process")

// dates reads ?start=&end=, defaulting both to today.
func (s *Server) dates(c *gin.Context) (string, string) {
	today := storage.FormatDate(s.deps.Now())
	return c.DefaultQuery("start", today), c.DefaultQuery("end", today)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &storage.ValidationError{Field: key, Reason: "must be an integer"}
	}
	return n, nil
}

func readBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "body_too_large", err)
			return nil, false
		}
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return nil, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		RespondError(c, http.StatusBadRequest, "empty_body", nil)
		return nil, false
	}
	return raw, true
}

// splitEvents accepts a single event, a JSON array of events, or
// {"events": [...]}.
func splitEvents(raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var env struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(trimmed, &env); err == nil && env.Events != nil {
		return env.Events, nil
	}
	return []json.RawMessage{trimmed}, nil
}

func (s *Server) ingestEvents(c *gin.Context) {
	if s.deps.Events == nil {
		RespondError(c, http.StatusServiceUnavailable, "tracker_unavailable", errUnavailable)
		return
	}
	raw, ok := readBody(c)
	if !ok {
		return
	}
	msgs, err := splitEvents(raw)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_event", err)
		return
	}

	// Validate the whole batch before applying any of it.
	events := make([]tracker.Event, 0, len(msgs))
	for _, m := range msgs {
		ev, err := tracker.ParseEvent(m)
		if err != nil {
			respondErr(c, err)
			return
		}
		events = append(events, ev)
	}

	accepted, skipped := 0, 0
	for _, ev := range events {
		err := s.deps.Events.Dispatch(c.Request.Context(), ev)
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, tracker.ErrHostState):
			skipped++
		default:
			respondErr(c, err)
			return
		}
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": accepted, "skipped": skipped})
}

type statusResponse struct {
	Session       *session.Session `json:"session"`
	TodayDuration int64            `json:"todayDuration"`
	Stats         *storage.Stats   `json:"stats"`
}

func (s *Server) status(c *gin.Context) {
	ctx := c.Request.Context()
	resp := statusResponse{}

	if s.deps.Sessions != nil {
		cur, err := s.deps.Sessions.Current(ctx)
		if err != nil {
			respondErr(c, err)
			return
		}
		resp.Session = cur
	}

	stats, err := s.deps.Store.GetStats(ctx)
	if err != nil {
		respondErr(c, err)
		return
	}
	resp.Stats = stats

	today := storage.FormatDate(s.deps.Now())
	trend, err := s.deps.Store.GetDailyTrend(ctx, today, today)
	if err != nil {
		respondErr(c, err)
		return
	}
	for _, d := range trend {
		resp.TodayDuration += d.Duration
	}

	RespondOK(c, resp)
}

type addActivityRequest struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	DurationMs int64  `json:"durationMs"`
	StartTime  int64  `json:"startTime"`
}

func (s *Server) addActivity(c *gin.Context) {
	var req addActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	a := storage.Activity{
		URL:      req.URL,
		Title:    req.Title,
		Duration: time.Duration(req.DurationMs) * time.Millisecond,
		Source:   session.SourceManual,
	}
	if req.StartTime > 0 {
		a.StartTime = time.UnixMilli(req.StartTime)
	}
	if err := s.deps.Store.RecordActivity(c.Request.Context(), a); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) sites(c *gin.Context) {
	start, end := s.dates(c)
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		respondErr(c, err)
		return
	}
	sites, err := s.deps.Store.GetAggregatedSites(c.Request.Context(), start, end, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, sites)
}

func (s *Server) forgetSite(c *gin.Context) {
	if err := s.deps.Store.DeleteSiteData(c.Request.Context(), c.Param("hostname")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) pages(c *gin.Context) {
	start, end := s.dates(c)
	host := c.Query("hostname")
	if host == "" {
		respondErr(c, &storage.ValidationError{Field: "hostname", Reason: "required"})
		return
	}
	pages, err := s.deps.Store.GetAggregatedPages(c.Request.Context(), host, start, end)
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, pages)
}

func (s *Server) history(c *gin.Context) {
	start, end := s.dates(c)
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		respondErr(c, err)
		return
	}
	logs, err := s.deps.Store.GetHistoryLogs(c.Request.Context(), storage.HistoryQuery{
		StartDate: start,
		EndDate:   end,
		Hostname:  c.Query("hostname"),
		Path:      c.Query("path"),
		Limit:     limit,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, logs)
}

func (s *Server) rangeStats(c *gin.Context) {
	start, end := s.dates(c)
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		respondErr(c, err)
		return
	}
	stats, err := s.deps.Store.GetRangeStats(c.Request.Context(), start, end, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, stats)
}

func (s *Server) dailyTrend(c *gin.Context) {
	start, end := s.dates(c)
	trend, err := s.deps.Store.GetDailyTrend(c.Request.Context(), start, end)
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, trend)
}

func (s *Server) hourlyTrend(c *gin.Context) {
	date := c.DefaultQuery("date", storage.FormatDate(s.deps.Now()))
	hours, err := s.deps.Store.GetHourlyTrend(c.Request.Context(), date)
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, hours)
}

// weeklyInsights defaults to the Monday-based week containing today.
func (s *Server) weeklyInsights(c *gin.Context) {
	now := s.deps.Now()
	offset := (int(now.Weekday()) + 6) % 7
	monday := now.AddDate(0, 0, -offset)
	start := c.DefaultQuery("start", storage.FormatDate(monday))
	end := c.Query("end")
	if end == "" {
		var err error
		if end, err = storage.AddDays(start, 6); err != nil {
			respondErr(c, err)
			return
		}
	}

	in, err := s.deps.Store.GetWeeklyInsights(c.Request.Context(), start, end)
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, in)
}

func (s *Server) export(c *gin.Context) {
	snap, err := s.deps.Store.ExportAll(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	name := "dwell-export-" + storage.FormatDate(s.deps.Now()) + ".json"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	RespondOK(c, snap)
}

func (s *Server) importSnapshot(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	snap, err := storage.ParseSnapshot(raw)
	if err != nil {
		respondErr(c, err)
		return
	}
	if err := s.deps.Store.Import(c.Request.Context(), snap); err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{
		"history": len(snap.History),
		"sites":   len(snap.Sites),
		"pages":   len(snap.Pages),
	})
}

type retentionSetting struct {
	RawDays int `json:"rawDays"`
}

func (s *Server) getRetention(c *gin.Context) {
	days, err := s.deps.Store.RawRetentionDays(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, retentionSetting{RawDays: days})
}

func (s *Server) setRetention(c *gin.Context) {
	var req retentionSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := s.deps.Store.SetRawRetentionDays(c.Request.Context(), req.RawDays); err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, req)
}

func (s *Server) runRetention(c *gin.Context) {
	if s.deps.Retention == nil {
		RespondError(c, http.StatusServiceUnavailable, "retention_unavailable", errUnavailable)
		return
	}
	maxDays, err := queryInt(c, "max_days", s.deps.MaxDaysPerRun)
	if err != nil {
		respondErr(c, err)
		return
	}
	res, err := s.deps.Retention.Run(c.Request.Context(), maxDays)
	if errors.Is(err, retention.ErrRunInProgress) {
		RespondError(c, http.StatusConflict, "retention_running", err)
		return
	}
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, res)
}

type blocklistRequest struct {
	Entry   string   `json:"entry"`
	Entries []string `json:"entries"`
}

func respondBlocklistErr(c *gin.Context, err error) {
	if errors.Is(err, blocklist.ErrInvalidEntry) {
		RespondError(c, http.StatusBadRequest, "invalid_entry", err)
		return
	}
	respondErr(c, err)
}

func (s *Server) blocklistReady(c *gin.Context) bool {
	if s.deps.Blocklist == nil {
		RespondError(c, http.StatusServiceUnavailable, "blocklist_unavailable", errUnavailable)
		return false
	}
	return true
}

func (s *Server) listBlocklist(c *gin.Context) {
	if !s.blocklistReady(c) {
		return
	}
	if err := s.deps.Blocklist.Reload(c.Request.Context()); err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": s.deps.Blocklist.List()})
}

func (s *Server) setBlocklist(c *gin.Context) {
	if !s.blocklistReady(c) {
		return
	}
	var req blocklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := s.deps.Blocklist.Set(c.Request.Context(), req.Entries); err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": s.deps.Blocklist.List()})
}

func (s *Server) addBlocklist(c *gin.Context) {
	if !s.blocklistReady(c) {
		return
	}
	var req blocklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	entry, err := s.deps.Blocklist.Add(c.Request.Context(), req.Entry)
	if err != nil {
		respondBlocklistErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

func (s *Server) removeBlocklist(c *gin.Context) {
	if !s.blocklistReady(c) {
		return
	}
	removed, err := s.deps.Blocklist.Remove(c.Request.Context(), c.Query("entry"))
	if err != nil {
		respondBlocklistErr(c, err)
		return
	}
	if !removed {
		RespondError(c, http.StatusNotFound, "not_found", errors.New("entry not in blocklist"))
		return
	}
	c.Status(http.StatusNoContent)
}
