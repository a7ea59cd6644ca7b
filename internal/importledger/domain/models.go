package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusInterrupted:
		return true
	}
	return false
}

// Entry records the outcome of one source file. Entries are append-only.
type Entry struct {
	ID              snowflake.ID         `gorm:"primaryKey;autoIncrement:false" json:"id"`
	RunID           string               `gorm:"type:varchar(36);not null;index" json:"run_id"`
	SourceCategory  placedomain.Category `gorm:"type:varchar(20);not null;index:idx_import_ledger_source,priority:1" json:"source_category"`
	CountryCode     string               `gorm:"type:varchar(2);not null;default:'';index:idx_import_ledger_source,priority:2" json:"country_code"`
	SourceFile      string               `gorm:"type:varchar(255);not null" json:"source_file"`
	RecordsImported int64                `gorm:"not null;default:0" json:"records_imported"`
	RecordsSkipped  int64                `gorm:"not null;default:0" json:"records_skipped"`
	Status          Status               `gorm:"type:varchar(20);not null" json:"status"`
	Notes           *string              `gorm:"type:text" json:"notes,omitempty"`
	Details         datatypes.JSONMap    `json:"details,omitempty"`
	CreatedAt       time.Time            `gorm:"not null;index" json:"created_at"`
}

func (Entry) TableName() string { return "import_ledger" }

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Category   string
	Country    *string
	SourceFile string
	Status     string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *Cursor
	Limit      int
}
