package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/geoatlas/internal/config"
	ledgerdomain "github.com/smallbiznis/geoatlas/internal/importledger/domain"
	ingestdomain "github.com/smallbiznis/geoatlas/internal/ingest/domain"
	"github.com/smallbiznis/geoatlas/internal/ingest/parser"
	"github.com/smallbiznis/geoatlas/internal/ingest/repository"
	"github.com/smallbiznis/geoatlas/internal/lock"
	obscontext "github.com/smallbiznis/geoatlas/internal/observability/context"
	"github.com/smallbiznis/geoatlas/internal/observability/logger"
	"github.com/smallbiznis/geoatlas/internal/observability/metrics"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"github.com/smallbiznis/geoatlas/internal/schema"
	"github.com/smallbiznis/geoatlas/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxLineBytes = 4 << 20

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Config        config.Config
	Codes         *config.FeatureCodesHolder
	Repo          repository.Repository
	Ledger        ledgerdomain.Service
	Locker        *lock.TableLocker
	Metrics       *metrics.Metrics       `optional:"true"`
	IngestMetrics *metrics.IngestMetrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	codes         *config.FeatureCodesHolder
	repo          repository.Repository
	ledger        ledgerdomain.Service
	locker        *lock.TableLocker
	metrics       *metrics.Metrics
	ingestMetrics *metrics.IngestMetrics
	chunkSize     int
	workers       int
}

func NewService(p Params) ingestdomain.Service {
	chunkSize := p.Config.Ingest.ChunkSize
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}
	workers := p.Config.Ingest.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("ingest.service"),
		genID:         p.GenID,
		codes:         p.Codes,
		repo:          p.Repo,
		ledger:        p.Ledger,
		locker:        p.Locker,
		metrics:       p.Metrics,
		ingestMetrics: p.IngestMetrics,
		chunkSize:     chunkSize,
		workers:       workers,
	}
}

func (s *Service) Run(ctx context.Context, req ingestdomain.RunRequest) (ingestdomain.RunReport, error) {
	sources := req.Sources
	if len(sources) == 0 {
		if strings.TrimSpace(req.Dir) == "" {
			return ingestdomain.RunReport{}, ingestdomain.ErrNoSources
		}
		discovered, err := Discover(req.Dir)
		if err != nil {
			return ingestdomain.RunReport{}, err
		}
		sources = discovered
	}
	sources = filterCategories(sources, req.Categories)

	report := ingestdomain.RunReport{RunID: uuid.NewString()}
	log := s.log.With(zap.String("run_id", report.RunID))
	log.Info("ingestion run started", zap.Int("files", len(sources)), zap.Int("workers", s.workers))

	reports := make([]*ingestdomain.FileReport, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, src := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fileReport, err := s.IngestFile(gctx, report.RunID, src)
			if err != nil {
				if errors.Is(err, db.ErrStorageUnavailable) {
					return err
				}
				if gctx.Err() != nil && errors.Is(err, gctx.Err()) {
					// not started
					return nil
				}
				return err
			}
			reports[i] = &fileReport
			return nil
		})
	}
	err := g.Wait()

	for _, r := range reports {
		if r == nil {
			continue
		}
		report.Files = append(report.Files, *r)
		report.Total.Add(r.Result)
	}
	if err == nil {
		err = ctx.Err()
	}

	log.Info("ingestion run finished",
		zap.Int("files", len(report.Files)),
		zap.Int64("imported", report.Total.Imported),
		zap.Int64("skipped", report.Total.Skipped),
		zap.Error(err),
	)
	return report, err
}

// IngestFile processes one source and appends exactly one ledger entry for
// it. An unreadable file is recorded as failed and is not an error.
func (s *Service) IngestFile(ctx context.Context, runID string, src ingestdomain.Source) (ingestdomain.FileReport, error) {
	report := ingestdomain.FileReport{Source: src}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	if _, err := placedomain.ParseCategory(string(src.Category)); err != nil {
		return report, err
	}
	if src.Name == "" {
		src.Name = src.Path
		report.Source.Name = src.Path
	}

	ctx = obscontext.WithRunID(ctx, runID)
	log := logger.WithSource(logger.WithContext(ctx, s.log), string(src.Category), src.Name, src.Country)

	status := ledgerdomain.StatusCompleted
	var notes []string

	result, err := s.ingestReader(ctx, log, src)
	switch {
	case err == nil:
	case errors.Is(err, db.ErrStorageUnavailable):
		log.Error("storage unavailable, aborting", zap.Error(err))
		s.metrics.RecordIngestFile(ctx, string(src.Category), string(ledgerdomain.StatusFailed))
		return report, err
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		status = ledgerdomain.StatusInterrupted
		notes = append(notes, "stopped before end of file")
	default:
		status = ledgerdomain.StatusFailed
		notes = append(notes, err.Error())
		log.Warn("source file failed", zap.Error(err))
	}

	report.Result = result
	report.Status = string(status)
	if len(notes) > 0 {
		report.Error = strings.Join(notes, "; ")
	}

	entry := ledgerdomain.Entry{
		RunID:           runID,
		SourceCategory:  src.Category,
		CountryCode:     src.Country,
		SourceFile:      src.Name,
		RecordsImported: result.Imported,
		RecordsSkipped:  result.Skipped,
		Status:          status,
		Details:         reasonDetails(result.Reasons),
	}
	if report.Error != "" {
		entry.Notes = &report.Error
	}
	if _, err := s.ledger.Append(context.WithoutCancel(ctx), entry); err != nil {
		log.Error("append ledger entry failed", zap.Error(err))
		return report, fmt.Errorf("append ledger entry for %s: %w", src.Name, err)
	}

	s.recordResult(ctx, src.Category, status, result)
	log.Info("source file processed",
		zap.String("status", string(status)),
		zap.Int64("imported", result.Imported),
		zap.Int64("skipped", result.Skipped),
	)
	return report, nil
}

// ingestReader returns the counts so far. Rows committed before an error stay
// committed and are included.
func (s *Service) ingestReader(ctx context.Context, log *zap.Logger, src ingestdomain.Source) (ingestdomain.Result, error) {
	var result ingestdomain.Result

	f, err := os.Open(src.Path)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ingestdomain.ErrUnreadableSource, err)
	}
	defer f.Close()

	p := parser.New(src.Category, src.Country, s.codes.Get())
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	chunk := make([]parser.Row, 0, s.chunkSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		chunkResult, err := s.writeChunk(ctx, log, src.Category, chunk)
		result.Add(chunkResult)
		chunk = chunk[:0]
		return err
	}

	for scanner.Scan() {
		row, err := p.Parse(scanner.Text())
		if err != nil {
			if !errors.Is(err, parser.ErrBlankLine) {
				result.Skip(parser.Reason(err), 1)
			}
			continue
		}
		chunk = append(chunk, row)
		if len(chunk) >= s.chunkSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if flushErr := flush(); flushErr != nil {
			return result, flushErr
		}
		return result, fmt.Errorf("%w: %w", ingestdomain.ErrUnreadableSource, err)
	}
	return result, flush()
}

// writeChunk commits one chunk under the table lock. Once the lock is held
// the commit runs to completion even if ctx is cancelled.
func (s *Service) writeChunk(ctx context.Context, log *zap.Logger, category placedomain.Category, rows []parser.Row) (ingestdomain.Result, error) {
	table := category.Table()
	release, err := s.locker.Lock(ctx, table)
	if err != nil {
		return ingestdomain.Result{}, err
	}
	defer release()

	commitCtx := context.WithoutCancel(ctx)
	now := time.Now().UTC()

	switch category {
	case placedomain.CategoryGeonames:
		models := make([]placedomain.Geoname, 0, len(rows))
		for _, row := range rows {
			models = append(models, placedomain.Geoname{
				SpatialPoint: s.spatialPoint(row.Point, now),
				FeatureClass: row.Point.FeatureClass,
				FeatureCode:  row.Point.FeatureCode,
				Population:   row.Point.Population,
			})
		}
		return commit(commitCtx, s, log, table, models, false)
	case placedomain.CategoryHeritage:
		models := make([]placedomain.HeritageSite, 0, len(rows))
		for _, row := range rows {
			models = append(models, placedomain.HeritageSite{
				SpatialPoint: s.spatialPoint(row.Point, now),
				FeatureClass: row.Point.FeatureClass,
				FeatureCode:  row.Point.FeatureCode,
				Category:     string(placedomain.CategoryHeritage),
			})
		}
		return commit(commitCtx, s, log, table, models, false)
	case placedomain.CategoryCultural:
		models := make([]placedomain.CulturalSite, 0, len(rows))
		for _, row := range rows {
			models = append(models, placedomain.CulturalSite{
				SpatialPoint: s.spatialPoint(row.Point, now),
				FeatureClass: row.Point.FeatureClass,
				FeatureCode:  row.Point.FeatureCode,
				Population:   row.Point.Population,
				SiteType:     placedomain.SiteType(row.Point.FeatureCode),
			})
		}
		return commit(commitCtx, s, log, table, models, false)
	case placedomain.CategoryPostal:
		var result ingestdomain.Result
		seen := make(map[string]struct{}, len(rows))
		models := make([]placedomain.PostalLocality, 0, len(rows))
		for _, row := range rows {
			m := *row.Postal
			key := m.CountryCode + "\x00" + m.PostalCode + "\x00" + m.PlaceName
			if _, dup := seen[key]; dup {
				result.Skip(ingestdomain.ReasonDuplicate, 1)
				continue
			}
			seen[key] = struct{}{}
			m.ID = s.genID.Generate()
			m.CreatedAt = now
			models = append(models, m)
		}
		committed, err := commit(commitCtx, s, log, table, models, true)
		result.Add(committed)
		return result, err
	}
	return ingestdomain.Result{}, placedomain.ErrUnknownCategory
}

func (s *Service) spatialPoint(p *parser.Point, now time.Time) placedomain.SpatialPoint {
	sp := p.SpatialPoint
	sp.ID = s.genID.Generate()
	sp.CreatedAt = now
	return sp
}

// commit inserts models in one transaction together with the table's
// generation bump. On a rejected batch it replays the rows one by one so
// valid rows still land.
func commit[T any](ctx context.Context, s *Service, log *zap.Logger, table string, models []T, ignoreConflicts bool) (ingestdomain.Result, error) {
	var result ingestdomain.Result
	if len(models) == 0 {
		return result, nil
	}

	insert := s.repo.Insert
	if ignoreConflicts {
		insert = s.repo.InsertIgnoringConflicts
	}

	start := time.Now()
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := insert(ctx, tx, &models)
		if err != nil {
			return err
		}
		affected = n
		if n == 0 {
			return nil
		}
		return schema.Bump(ctx, tx, table)
	})
	if err == nil {
		result.Imported = affected
		result.Skip(ingestdomain.ReasonDuplicate, int64(len(models))-affected)
		s.ingestMetrics.ObserveChunkCommit(table, int(affected), time.Since(start))
		return result, nil
	}
	if db.IsUnavailableErr(err) {
		return result, db.Classify(err)
	}

	s.ingestMetrics.IncChunkFallback(table, err)
	log.Warn("chunk rejected, replaying row by row",
		zap.String("table", table),
		zap.Int("rows", len(models)),
		zap.Error(err),
	)
	for i := range models {
		var n int64
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			if n, err = insert(ctx, tx, &models[i]); err != nil || n == 0 {
				return err
			}
			return schema.Bump(ctx, tx, table)
		})
		switch {
		case err != nil && db.IsUnavailableErr(err):
			return result, db.Classify(err)
		case err != nil && db.IsDuplicateKeyErr(err):
			result.Skip(ingestdomain.ReasonDuplicate, 1)
		case err != nil:
			result.Skip(ingestdomain.ReasonRejected, 1)
		case n == 0:
			result.Skip(ingestdomain.ReasonDuplicate, 1)
		default:
			result.Imported += n
		}
	}
	s.ingestMetrics.ObserveChunkCommit(table, int(result.Imported), time.Since(start))
	return result, nil
}

func (s *Service) recordResult(ctx context.Context, category placedomain.Category, status ledgerdomain.Status, result ingestdomain.Result) {
	s.metrics.RecordIngestFile(ctx, string(category), string(status))
	s.metrics.RecordIngestRows(ctx, string(category), "imported", int(result.Imported))
	for reason, n := range result.Reasons {
		s.metrics.RecordIngestRows(ctx, string(category), reason, int(n))
	}
}

func reasonDetails(reasons map[string]int64) datatypes.JSONMap {
	if len(reasons) == 0 {
		return nil
	}
	details := make(datatypes.JSONMap, len(reasons))
	for reason, n := range reasons {
		details[reason] = n
	}
	return details
}

func filterCategories(sources []ingestdomain.Source, categories []placedomain.Category) []ingestdomain.Source {
	if len(categories) == 0 {
		return sources
	}
	allowed := make(map[placedomain.Category]struct{}, len(categories))
	for _, c := range categories {
		allowed[c] = struct{}{}
	}
	out := make([]ingestdomain.Source, 0, len(sources))
	for _, src := range sources {
		if _, ok := allowed[src.Category]; ok {
			out = append(out, src)
		}
	}
	return out
}
