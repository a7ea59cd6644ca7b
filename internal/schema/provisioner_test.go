package schema

import (
	"context"
	"testing"
	"time"

	ledgerdomain "github.com/smallbiznis/geoatlas/internal/importledger/domain"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"github.com/smallbiznis/geoatlas/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvisioner(t *testing.T) *Provisioner {
	t.Helper()
	return NewProvisioner(Params{DB: dbtest.Open(t), Log: zap.NewNop()})
}

func TestEnsureIsIdempotent(t *testing.T) {
	p := newTestProvisioner(t)
	ctx := context.Background()

	require.NoError(t, p.Ensure(ctx))
	require.NoError(t, p.Ensure(ctx))

	for _, table := range Tables {
		assert.True(t, p.db.Migrator().HasTable(string(table)), table)
	}
	assert.True(t, p.db.Migrator().HasIndex(&placedomain.PostalLocality{}, "ux_postal_localities_key"))
}

func TestResetLeavesOtherTablesIntact(t *testing.T) {
	p := newTestProvisioner(t)
	ctx := context.Background()
	require.NoError(t, p.Ensure(ctx))

	now := time.Now().UTC()
	require.NoError(t, p.db.Create(&placedomain.Geoname{
		SpatialPoint: placedomain.SpatialPoint{ID: 1, Name: "Nouméa", ASCIIName: "Noumea", Latitude: -22.27, Longitude: 166.44, CountryCode: "NC", CreatedAt: now},
		FeatureClass: "P", FeatureCode: "PPLC", Population: 93060,
	}).Error)
	require.NoError(t, p.db.Create(&placedomain.PostalLocality{
		ID: 2, CountryCode: "NC", PostalCode: "98800", PlaceName: "Nouméa", Latitude: -22.27, Longitude: 166.44, Accuracy: 1, CreatedAt: now,
	}).Error)

	require.NoError(t, p.Reset(ctx, TablePostalLocalities))

	var postal, geonames int64
	require.NoError(t, p.db.Model(&placedomain.PostalLocality{}).Count(&postal).Error)
	require.NoError(t, p.db.Model(&placedomain.Geoname{}).Count(&geonames).Error)
	assert.Zero(t, postal)
	assert.EqualValues(t, 1, geonames)
}

func TestResetRejectsProtectedAndUnknownTables(t *testing.T) {
	p := newTestProvisioner(t)
	ctx := context.Background()

	assert.ErrorIs(t, p.Reset(ctx, TableImportLedger), ErrLedgerProtected)
	assert.ErrorIs(t, p.Reset(ctx, TableGenerations), ErrUnknownTable)
	assert.ErrorIs(t, p.Reset(ctx, TableGenerations, AllowLedger()), ErrUnknownTable)
	assert.ErrorIs(t, p.Reset(ctx, Table("hotels")), ErrUnknownTable)
	assert.ErrorIs(t, p.Ensure(ctx, Table("hotels")), ErrUnknownTable)
}

func TestResetLedgerWhenAllowed(t *testing.T) {
	p := newTestProvisioner(t)
	ctx := context.Background()
	require.NoError(t, p.Ensure(ctx))

	require.NoError(t, p.db.Create(&ledgerdomain.Entry{
		ID:             7,
		SourceCategory: placedomain.CategoryGeonames,
		CountryCode:    "NC",
		SourceFile:     "NC.txt",
		Status:         ledgerdomain.StatusCompleted,
		CreatedAt:      time.Now().UTC(),
	}).Error)

	require.NoError(t, p.Reset(ctx, TableImportLedger, AllowLedger()))

	var entries int64
	require.NoError(t, p.db.Model(&ledgerdomain.Entry{}).Count(&entries).Error)
	assert.Zero(t, entries)
}

func TestResetAdvancesGeneration(t *testing.T) {
	p := newTestProvisioner(t)
	ctx := context.Background()
	require.NoError(t, p.Ensure(ctx))

	gen, err := CurrentGeneration(ctx, p.db, string(TableGeonames))
	require.NoError(t, err)
	assert.Zero(t, gen)

	require.NoError(t, p.Reset(ctx, TableGeonames))
	require.NoError(t, p.Reset(ctx, TableGeonames))
	require.NoError(t, p.Reset(ctx, TablePostalLocalities))

	gen, err = CurrentGeneration(ctx, p.db, string(TableGeonames))
	require.NoError(t, err)
	assert.EqualValues(t, 2, gen)

	gen, err = CurrentGeneration(ctx, p.db, string(TableGeonames), string(TablePostalLocalities))
	require.NoError(t, err)
	assert.EqualValues(t, 3, gen)
}

func TestResetCreatesGenerationTableWhenMissing(t *testing.T) {
	p := newTestProvisioner(t)
	ctx := context.Background()
	require.NoError(t, p.Ensure(ctx, TableCulturalSites))

	require.NoError(t, p.Reset(ctx, TableCulturalSites))
	gen, err := CurrentGeneration(ctx, p.db, string(TableCulturalSites))
	require.NoError(t, err)
	assert.EqualValues(t, 1, gen)
}

func TestTableFor(t *testing.T) {
	table, err := TableFor(placedomain.CategoryHeritage)
	require.NoError(t, err)
	assert.Equal(t, TableHeritageSites, table)

	_, err = TableFor(placedomain.Category("x"))
	assert.ErrorIs(t, err, placedomain.ErrUnknownCategory)
}
