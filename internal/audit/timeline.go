// Package audit exposes the audit trail as a filterable timeline with
// CSV export for compliance reviews.
package audit

import (
	"fmt"
	"time"

	"github.com/sacsol/sacsol-api/internal/shared"
)

var (
	// ErrValidation indicates bad filter input.
	ErrValidation = fmt.Errorf("audit: %w", shared.ErrValidation)
)

// TimelineFilters holds the base filters for the audit timeline.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Verb     string
	LPOID    int64
	Page     int
	PageSize int
}

// TimelineRow is one line of the audit timeline.
type TimelineRow struct {
	At         time.Time
	Actor      string
	Verb       string
	LPONumber  string
	GRNNumber  string
	PayloadRaw []byte
}

// PagingInfo carries simple pagination metadata.
type PagingInfo struct {
	Page     int
	HasNext  bool
	PageSize int
	PrevPage int
	NextPage int
}

// Result bundles a timeline page with its paging metadata.
type Result struct {
	Rows   []TimelineRow
	Paging PagingInfo
}
