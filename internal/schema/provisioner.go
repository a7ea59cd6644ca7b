// Package schema creates and resets the per-category tables.
package schema

import (
	"context"
	"errors"
	"fmt"

	ledgerdomain "github.com/smallbiznis/geoatlas/internal/importledger/domain"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"github.com/smallbiznis/geoatlas/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Table string

const (
	TableGeonames         Table = "geonames"
	TableHeritageSites    Table = "heritage_sites"
	TableCulturalSites    Table = "cultural_sites"
	TablePostalLocalities Table = "postal_localities"
	TableImportLedger     Table = "import_ledger"
	TableGenerations      Table = "table_generations"
)

var (
	ErrUnknownTable    = errors.New("unknown_table")
	ErrLedgerProtected = errors.New("ledger_protected")
)

// Tables lists every managed table.
var Tables = []Table{
	TableGeonames,
	TableHeritageSites,
	TableCulturalSites,
	TablePostalLocalities,
	TableImportLedger,
	TableGenerations,
}

// TableFor returns the table that stores category.
func TableFor(category placedomain.Category) (Table, error) {
	table := Table(category.Table())
	if table == "" {
		return "", placedomain.ErrUnknownCategory
	}
	return table, nil
}

func model(table Table) (any, error) {
	switch table {
	case TableGeonames:
		return &placedomain.Geoname{}, nil
	case TableHeritageSites:
		return &placedomain.HeritageSite{}, nil
	case TableCulturalSites:
		return &placedomain.CulturalSite{}, nil
	case TablePostalLocalities:
		return &placedomain.PostalLocality{}, nil
	case TableImportLedger:
		return &ledgerdomain.Entry{}, nil
	case TableGenerations:
		return &Generation{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
}

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Provisioner struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewProvisioner(p Params) *Provisioner {
	return &Provisioner{db: p.DB, log: p.Log.Named("schema.provisioner")}
}

// Ensure creates missing tables and indexes. With no arguments every table is
// ensured. Running it twice is a no-op.
func (p *Provisioner) Ensure(ctx context.Context, tables ...Table) error {
	if len(tables) == 0 {
		tables = Tables
	}
	for _, table := range tables {
		m, err := model(table)
		if err != nil {
			return err
		}
		if err := p.db.WithContext(ctx).AutoMigrate(m); err != nil {
			return fmt.Errorf("ensure %s: %w", table, db.Classify(err))
		}
	}
	return nil
}

type resetOptions struct {
	allowLedger bool
}

type ResetOption func(*resetOptions)

// AllowLedger lets Reset drop the import ledger. Without it the ledger is
// append-only and Reset refuses it.
func AllowLedger() ResetOption {
	return func(o *resetOptions) { o.allowLedger = true }
}

// Reset drops and recreates exactly one table and advances its generation.
func (p *Provisioner) Reset(ctx context.Context, table Table, opts ...ResetOption) error {
	var o resetOptions
	for _, opt := range opts {
		opt(&o)
	}
	switch {
	case table == TableGenerations:
		return fmt.Errorf("%w: %s is managed internally", ErrUnknownTable, table)
	case table == TableImportLedger && !o.allowLedger:
		return fmt.Errorf("%w: %s is append-only", ErrLedgerProtected, table)
	}
	m, err := model(table)
	if err != nil {
		return err
	}

	conn := p.db.WithContext(ctx)
	migrator := conn.Migrator()
	if migrator.HasTable(m) {
		if err := migrator.DropTable(m); err != nil {
			return fmt.Errorf("drop %s: %w", table, db.Classify(err))
		}
	}
	if err := migrator.CreateTable(m); err != nil {
		return fmt.Errorf("create %s: %w", table, db.Classify(err))
	}
	if !migrator.HasTable(&Generation{}) {
		if err := conn.AutoMigrate(&Generation{}); err != nil {
			return fmt.Errorf("ensure %s: %w", TableGenerations, db.Classify(err))
		}
	}
	if err := Bump(ctx, conn, string(table)); err != nil {
		return err
	}
	p.log.Info("table reset", zap.String("table", string(table)))
	return nil
}
