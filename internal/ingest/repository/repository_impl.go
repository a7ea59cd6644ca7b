package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository writes cleaned rows. value is a pointer to one model or to a
// slice of models of a single category.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, value any) (int64, error)
	// InsertIgnoringConflicts drops rows that collide with a unique index.
	InsertIgnoringConflicts(ctx context.Context, db *gorm.DB, value any) (int64, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, value any) (int64, error) {
	res := db.WithContext(ctx).Create(value)
	return res.RowsAffected, res.Error
}

func (r *repo) InsertIgnoringConflicts(ctx context.Context, db *gorm.DB, value any) (int64, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(value)
	return res.RowsAffected, res.Error
}
