package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/geoatlas/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Generation counts data changes per table. Every committed chunk and every
// reset moves it forward, so caches keyed on it never outlive the rows.
type Generation struct {
	Name       string    `gorm:"column:table_name;primaryKey;size:64" json:"table_name"`
	Generation int64     `gorm:"column:generation;not null;default:0" json:"generation"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Generation) TableName() string { return string(TableGenerations) }

// Bump advances the generation of table. Call it inside the transaction that
// changes the table so the two commit together.
func Bump(ctx context.Context, tx *gorm.DB, table string) error {
	now := time.Now().UTC()
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "table_name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"generation": gorm.Expr(string(TableGenerations) + ".generation + 1"),
			"updated_at": now,
		}),
	}).Create(&Generation{Name: table, Generation: 1, UpdatedAt: now}).Error
	if err != nil {
		return fmt.Errorf("bump generation %s: %w", table, db.Classify(err))
	}
	return nil
}

// CurrentGeneration sums the generations of tables. The sum only grows, so it
// changes whenever any of the tables does.
func CurrentGeneration(ctx context.Context, conn *gorm.DB, tables ...string) (int64, error) {
	var total int64
	err := conn.WithContext(ctx).
		Model(&Generation{}).
		Select("COALESCE(SUM(generation), 0)").
		Where("table_name IN ?", tables).
		Scan(&total).Error
	if err != nil {
		return 0, db.Classify(err)
	}
	return total, nil
}
