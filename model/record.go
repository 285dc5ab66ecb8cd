package model

import (
	"time"

	"github.com/guregu/null/v5"
)

// Record is one access-log line reduced to the fields the analyzer needs.
// ResponseTime and UpstreamResponseTime are in seconds.
type Record struct {
	Status               uint64
	ResponseTime         float64
	UpstreamResponseTime null.Float
}

// Summary holds the latency and error-rate statistics of a set of records.
type Summary struct {
	Total    int     `json:"total" ch:"total"`
	Errors   int     `json:"errors" ch:"errors"`
	ErrorPct float64 `json:"error_pct" ch:"error_pct"`
	Avg      float64 `json:"avg" ch:"avg"`
	P50      float64 `json:"p50" ch:"p50"`
	P90      float64 `json:"p90" ch:"p90"`
	P99      float64 `json:"p99" ch:"p99"`
}

// Run is a labeled analysis as kept in summary storage.
type Run struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	Source    string    `json:"source"`
	Summary   Summary   `json:"summary"`
	Lines     int       `json:"lines"`
	Dropped   int       `json:"dropped"`
	Malformed int       `json:"malformed"`
	CreatedAt time.Time `json:"created_at"`
}
