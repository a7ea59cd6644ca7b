package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/geoatlas/internal/importledger/domain"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"github.com/smallbiznis/geoatlas/pkg/db"
	"github.com/smallbiznis/geoatlas/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  ledgerdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  ledgerdomain.Repository
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("importledger.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Append writes one immutable entry. ID and CreatedAt are always assigned here.
func (s *Service) Append(ctx context.Context, entry ledgerdomain.Entry) (ledgerdomain.Entry, error) {
	if _, err := placedomain.ParseCategory(string(entry.SourceCategory)); err != nil {
		return ledgerdomain.Entry{}, err
	}
	if !entry.Status.Valid() {
		return ledgerdomain.Entry{}, ledgerdomain.ErrInvalidStatus
	}
	if entry.RecordsImported < 0 || entry.RecordsSkipped < 0 {
		return ledgerdomain.Entry{}, ledgerdomain.ErrInvalidCounts
	}
	entry.SourceFile = strings.TrimSpace(entry.SourceFile)
	if entry.SourceFile == "" {
		return ledgerdomain.Entry{}, ledgerdomain.ErrInvalidSource
	}

	entry.ID = s.genID.Generate()
	entry.CountryCode = strings.ToUpper(strings.TrimSpace(entry.CountryCode))
	entry.Notes = normalizePointer(entry.Notes)
	entry.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to append import ledger entry",
			zap.String("source_file", entry.SourceFile),
			zap.String("status", string(entry.Status)),
			zap.Error(err),
		)
		return ledgerdomain.Entry{}, db.Classify(err)
	}
	return entry, nil
}

func (s *Service) List(ctx context.Context, req ledgerdomain.ListRequest) (ledgerdomain.ListResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return ledgerdomain.ListResponse{}, ledgerdomain.ErrInvalidTimeRange
	}

	category := strings.TrimSpace(req.Category)
	if category != "" {
		parsed, err := placedomain.ParseCategory(category)
		if err != nil {
			return ledgerdomain.ListResponse{}, err
		}
		category = string(parsed)
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != "" && !ledgerdomain.Status(status).Valid() {
		return ledgerdomain.ListResponse{}, ledgerdomain.ErrInvalidStatus
	}

	var cursor *ledgerdomain.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return ledgerdomain.ListResponse{}, ledgerdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return ledgerdomain.ListResponse{}, ledgerdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return ledgerdomain.ListResponse{}, ledgerdomain.ErrInvalidPageToken
		}
		cursor = &ledgerdomain.Cursor{ID: id, CreatedAt: createdAt.UTC()}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, err := s.repo.List(ctx, s.db, ledgerdomain.ListFilter{
		Category:   category,
		Country:    req.Country,
		SourceFile: req.SourceFile,
		Status:     status,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return ledgerdomain.ListResponse{}, db.Classify(err)
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *ledgerdomain.Entry) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	entries := make([]ledgerdomain.Entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}

	resp := ledgerdomain.ListResponse{Entries: entries}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// HasImported reports whether a completed file with at least one imported row
// exists for the category and country.
func (s *Service) HasImported(ctx context.Context, category placedomain.Category, country string) (bool, error) {
	if _, err := placedomain.ParseCategory(string(category)); err != nil {
		return false, err
	}
	count, err := s.repo.CountCompleted(ctx, s.db, category, strings.ToUpper(strings.TrimSpace(country)))
	if err != nil {
		return false, db.Classify(err)
	}
	return count > 0, nil
}

func normalizePointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
