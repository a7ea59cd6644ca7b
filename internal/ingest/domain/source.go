package domain

import (
	"context"
	"errors"

	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
)

// Skip reasons recorded per file in the ledger details.
const (
	ReasonMalformed      = "malformed"
	ReasonOutOfRange     = "out_of_range"
	ReasonInvalidCountry = "invalid_country"
	ReasonInvalidNumber  = "invalid_number"
	ReasonLodging        = "lodging"
	ReasonNotSite        = "not_site"
	ReasonDuplicate      = "duplicate"
	ReasonRejected       = "rejected"
)

var (
	ErrUnreadableSource = errors.New("unreadable_source")
	ErrNoSources        = errors.New("no_sources")
)

// Source identifies one file to ingest. Country comes from the file name and
// is empty for multi-country files.
type Source struct {
	Path     string               `json:"path"`
	Name     string               `json:"name"`
	Category placedomain.Category `json:"category"`
	Country  string               `json:"country"`
}

// Result counts the rows of one source file.
type Result struct {
	Imported int64            `json:"imported"`
	Skipped  int64            `json:"skipped"`
	Reasons  map[string]int64 `json:"reasons,omitempty"`
}

func (r *Result) Skip(reason string, n int64) {
	if n <= 0 {
		return
	}
	if r.Reasons == nil {
		r.Reasons = make(map[string]int64)
	}
	r.Reasons[reason] += n
	r.Skipped += n
}

func (r *Result) Add(other Result) {
	r.Imported += other.Imported
	for reason, n := range other.Reasons {
		r.Skip(reason, n)
	}
}

// FileReport is the outcome of one file within a run.
type FileReport struct {
	Source Source `json:"source"`
	Result Result `json:"result"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RunRequest selects the files of one run. Empty Categories means all.
type RunRequest struct {
	Dir        string
	Sources    []Source
	Categories []placedomain.Category
}

type RunReport struct {
	RunID string       `json:"run_id"`
	Files []FileReport `json:"files"`
	Total Result       `json:"total"`
}

type Service interface {
	// IngestFile processes one source and appends its ledger entry.
	IngestFile(ctx context.Context, runID string, src Source) (FileReport, error)
	// Run processes every selected source. Only storage unavailability
	// aborts a run early.
	Run(ctx context.Context, req RunRequest) (RunReport, error)
}
