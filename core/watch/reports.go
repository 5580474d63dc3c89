package watch

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Report summarizes one merged proposal file.
type Report struct {
	ID         string        `json:"id"`
	File       string        `json:"file"`
	Proposals  int           `json:"proposals"`
	Immediate  int           `json:"immediate"`
	Arbitrated int           `json:"arbitrated"`
	Discarded  int           `json:"discarded"`
	Entries    int           `json:"entries"`
	Duration   time.Duration `json:"duration"`
	When       time.Time     `json:"when"`
	Err        string        `json:"error,omitempty"`
}

// ReportStore retains the most recent merge reports in insertion order,
// evicting the oldest once capacity is reached.
type ReportStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Report]
}

// NewReportStore creates a store retaining up to size reports.
func NewReportStore(size int) (*ReportStore, error) {
	cache, err := lru.New[string, *Report](size)
	if err != nil {
		return nil, err
	}
	return &ReportStore{cache: cache}, nil
}

// Add records a report.
func (s *ReportStore) Add(r *Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(r.ID, r)
}

// Recent returns retained reports, oldest first.
func (s *ReportStore) Recent() []*Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Values()
}

// Len returns the number of retained reports.
func (s *ReportStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
