package server

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guiyumin/ytfetch/internal/downloader"
)

// ErrRecordNotFound is returned when deleting an unknown record
var ErrRecordNotFound = errors.New("record not found")

const (
	StatusCompleted = "completed"
	StatusDegraded  = "degraded"
	StatusFailed    = "failed"
)

// HistoryRecord represents a finished download request
type HistoryRecord struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Title       string   `json:"title,omitempty"`
	Filename    string   `json:"filename,omitempty"`
	Format      string   `json:"format"`
	Quality     string   `json:"quality"`
	Status      string   `json:"status"` // "completed", "degraded" or "failed"
	SizeBytes   int64    `json:"size_bytes"`
	StartedAt   int64    `json:"started_at"`   // Unix timestamp
	CompletedAt int64    `json:"completed_at"` // Unix timestamp
	Duration    int64    `json:"duration_seconds"`
	Error       string   `json:"error,omitempty"`
	Fallbacks   []string `json:"fallbacks,omitempty"`

	path string
}

// History keeps the most recent downloads of this server session in memory,
// newest first
type History struct {
	mu      sync.RWMutex
	records []HistoryRecord
	limit   int
}

// NewHistory creates a history holding at most limit records
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 10
	}
	return &History{limit: limit}
}

// Record stores the outcome of a request and returns the new record
func (h *History) Record(req downloader.Request, res downloader.Result, started, finished time.Time) HistoryRecord {
	r := HistoryRecord{
		ID:          uuid.NewString(),
		URL:         req.URL,
		Title:       res.Title,
		Format:      req.Format.String(),
		Quality:     req.Tier.String(),
		SizeBytes:   res.Size,
		StartedAt:   started.Unix(),
		CompletedAt: finished.Unix(),
		Duration:    int64(finished.Sub(started).Seconds()),
		Error:       res.Error,
	}
	for _, f := range res.Fallbacks {
		r.Fallbacks = append(r.Fallbacks, string(f))
	}

	switch {
	case !res.Success:
		r.Status = StatusFailed
	case res.Degraded:
		r.Status = StatusDegraded
	default:
		r.Status = StatusCompleted
	}
	if res.Success {
		r.path = res.OutputPath
		r.Filename = filepath.Base(res.OutputPath)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append([]HistoryRecord{r}, h.records...)
	if len(h.records) > h.limit {
		h.records = h.records[:h.limit]
	}
	return r
}

// GetHistory returns records with pagination, plus the total count
func (h *History) GetHistory(limit, offset int) ([]HistoryRecord, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := len(h.records)
	if offset < 0 || offset >= total {
		return []HistoryRecord{}, total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	out := make([]HistoryRecord, end-offset)
	copy(out, h.records[offset:end])
	return out, total
}

// GetStats returns download statistics
func (h *History) GetStats() (completed int, failed int, totalBytes int64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, r := range h.records {
		if r.Status == StatusFailed {
			failed++
			continue
		}
		completed++
		totalBytes += r.SizeBytes
	}
	return
}

// FileFor returns the path of a successful download by its file name
func (h *History) FileFor(filename string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, r := range h.records {
		if r.path != "" && r.Filename == filename {
			return r.path, true
		}
	}
	return "", false
}

// DeleteRecord deletes a single history record
func (h *History) DeleteRecord(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, r := range h.records {
		if r.ID == id {
			h.records = append(h.records[:i], h.records[i+1:]...)
			return nil
		}
	}
	return ErrRecordNotFound
}

// ClearHistory deletes all history records
func (h *History) ClearHistory() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.records)
	h.records = nil
	return n
}
