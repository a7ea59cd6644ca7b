package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/geoatlas/internal/importledger/domain"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO import_ledger (
			id, run_id, source_category, country_code, source_file,
			records_imported, records_skipped, status, notes, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.RunID,
		entry.SourceCategory,
		entry.CountryCode,
		entry.SourceFile,
		entry.RecordsImported,
		entry.RecordsSkipped,
		entry.Status,
		entry.Notes,
		entry.Details,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	stmt := db.WithContext(ctx).Model(&domain.Entry{})

	if category := strings.TrimSpace(filter.Category); category != "" {
		stmt = stmt.Where("source_category = ?", category)
	}
	if filter.Country != nil {
		stmt = stmt.Where("country_code = ?", strings.ToUpper(strings.TrimSpace(*filter.Country)))
	}
	if sourceFile := strings.TrimSpace(filter.SourceFile); sourceFile != "" {
		stmt = stmt.Where("source_file = ?", sourceFile)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) CountCompleted(ctx context.Context, db *gorm.DB, category placedomain.Category, country string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Entry{}).
		Where("source_category = ? AND country_code = ? AND status = ? AND records_imported > 0",
			category, country, domain.StatusCompleted).
		Count(&count).Error
	return count, err
}
