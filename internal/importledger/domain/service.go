package domain

import (
	"context"
	"errors"
	"time"

	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"github.com/smallbiznis/geoatlas/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Entry, error)
	CountCompleted(ctx context.Context, db *gorm.DB, category placedomain.Category, country string) (int64, error)
}

// ListRequest filters the ledger. Country is matched exactly when set,
// including the empty code used by multi-country files.
type ListRequest struct {
	pagination.Pagination
	Category   string
	Country    *string
	SourceFile string
	Status     string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	Entries []Entry `json:"entries"`
}

type Service interface {
	Append(ctx context.Context, entry Entry) (Entry, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	HasImported(ctx context.Context, category placedomain.Category, country string) (bool, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidCounts    = errors.New("invalid_counts")
	ErrInvalidSource    = errors.New("invalid_source_file")
)
