package parser

import (
	"strings"
	"testing"

	"github.com/smallbiznis/geoatlas/internal/config"
	ingestdomain "github.com/smallbiznis/geoatlas/internal/ingest/domain"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tsv(fields ...string) string { return strings.Join(fields, "\t") }

// dumpLine builds a 19-column GeoNames line.
func dumpLine(id, name, ascii, lat, lon, class, code, cc, population, elevation string) string {
	return tsv(id, name, ascii, "Numea,Nouméa", lat, lon, class, code, cc, "", "02", "98818", "", "", population, elevation, "12", "Pacific/Noumea", "2024-03-01")
}

func TestParseDumpLayout(t *testing.T) {
	p := New(placedomain.CategoryGeonames, "NC", config.DefaultFeatureCodes())

	row, err := p.Parse(dumpLine("2139521", "Nouméa", "", "-22.27631", "166.4572", "P", "PPLC", "NC", "93060", "-9999"))
	require.NoError(t, err)
	require.NotNil(t, row.Point)
	assert.Nil(t, row.Postal)

	pt := row.Point
	assert.EqualValues(t, 2139521, pt.SourceID)
	assert.Equal(t, "Noumea", pt.ASCIIName)
	assert.Equal(t, []string{"Numea", "Nouméa"}, []string(pt.AlternateNames))
	assert.InDelta(t, -22.27631, pt.Latitude, 1e-9)
	assert.Equal(t, "NC", pt.CountryCode)
	assert.Equal(t, "PPLC", pt.FeatureCode)
	assert.EqualValues(t, 93060, pt.Population)
	assert.Nil(t, pt.Elevation)
	require.NotNil(t, pt.Admin1Code)
	assert.Equal(t, "02", *pt.Admin1Code)
	require.NotNil(t, pt.Timezone)
	assert.Equal(t, "Pacific/Noumea", *pt.Timezone)
	require.NotNil(t, pt.ModificationDate)
	assert.Equal(t, "2024-03-01", pt.ModificationDate.Format("2006-01-02"))
}

func TestParseCompactLayout(t *testing.T) {
	p := New(placedomain.CategoryGeonames, "FR", config.DefaultFeatureCodes())

	row, err := p.Parse(tsv("2988507", "Paris", "Paris", "", "48.85341", "2.3488", "P", "PPLC", "FR", "11", "75", "2138551", "0", "Europe/Paris"))
	require.NoError(t, err)
	pt := row.Point
	require.NotNil(t, pt.Elevation)
	assert.Equal(t, 0, *pt.Elevation)
	assert.EqualValues(t, 2138551, pt.Population)
	assert.Nil(t, pt.ModificationDate)
	assert.Empty(t, pt.AlternateNames)
}

func TestParseSkipReasons(t *testing.T) {
	codes := config.DefaultFeatureCodes()
	tests := []struct {
		name     string
		category placedomain.Category
		line     string
		reason   string
	}{
		{"too few fields", placedomain.CategoryGeonames, tsv("1", "x", "x"), ingestdomain.ReasonMalformed},
		{"non numeric id", placedomain.CategoryGeonames, dumpLine("abc", "X", "X", "1", "1", "P", "PPL", "FR", "0", ""), ingestdomain.ReasonMalformed},
		{"non numeric latitude", placedomain.CategoryGeonames, dumpLine("1", "X", "X", "north", "1", "P", "PPL", "FR", "0", ""), ingestdomain.ReasonMalformed},
		{"latitude out of range", placedomain.CategoryGeonames, dumpLine("1", "X", "X", "91", "1", "P", "PPL", "FR", "0", ""), ingestdomain.ReasonOutOfRange},
		{"longitude out of range", placedomain.CategoryGeonames, dumpLine("1", "X", "X", "0", "-180.5", "P", "PPL", "FR", "0", ""), ingestdomain.ReasonOutOfRange},
		{"nan latitude", placedomain.CategoryGeonames, dumpLine("1", "X", "X", "NaN", "0", "P", "PPL", "FR", "0", ""), ingestdomain.ReasonOutOfRange},
		{"unknown country", placedomain.CategoryGeonames, dumpLine("1", "X", "X", "0", "0", "P", "PPL", "QQ", "0", ""), ingestdomain.ReasonInvalidCountry},
		{"negative population", placedomain.CategoryGeonames, dumpLine("1", "X", "X", "0", "0", "P", "PPL", "FR", "-3", ""), ingestdomain.ReasonInvalidNumber},
		{"heritage lodging", placedomain.CategoryHeritage, dumpLine("1", "Hotel", "Hotel", "0", "0", "S", "HTL", "FR", "0", ""), ingestdomain.ReasonLodging},
		{"cultural resort", placedomain.CategoryCultural, dumpLine("1", "Resort", "Resort", "0", "0", "S", "RSRT", "FR", "0", ""), ingestdomain.ReasonLodging},
		{"heritage not a site", placedomain.CategoryHeritage, dumpLine("1", "Town", "Town", "0", "0", "P", "PPL", "FR", "0", ""), ingestdomain.ReasonNotSite},
		{"postal wrong width", placedomain.CategoryPostal, tsv("FR", "75001", "Paris"), ingestdomain.ReasonMalformed},
		{"postal negative accuracy", placedomain.CategoryPostal, tsv("FR", "75001", "Paris", "", "", "", "", "", "", "48.86", "2.34", "-1"), ingestdomain.ReasonInvalidNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.category, "FR", codes)
			_, err := p.Parse(tt.line)
			require.Error(t, err)
			assert.Equal(t, tt.reason, Reason(err))
		})
	}
}

func TestParseBlankLine(t *testing.T) {
	p := New(placedomain.CategoryGeonames, "FR", config.DefaultFeatureCodes())
	for _, line := range []string{"", "   ", "\r\n"} {
		_, err := p.Parse(line)
		assert.ErrorIs(t, err, ErrBlankLine)
	}
}

func TestParseTruncatesByRunes(t *testing.T) {
	long := strings.Repeat("é", 250)
	p := New(placedomain.CategoryGeonames, "FR", config.DefaultFeatureCodes())
	row, err := p.Parse(dumpLine("1", long, "", "0", "0", "P", "PPL", "FR", "", ""))
	require.NoError(t, err)
	assert.Equal(t, MaxNameLength, len([]rune(row.Point.Name)))
	assert.Equal(t, MaxNameLength, len([]rune(row.Point.ASCIIName)))
	assert.EqualValues(t, 0, row.Point.Population)

	postal := New(placedomain.CategoryPostal, "FR", config.DefaultFeatureCodes())
	row, err = postal.Parse(tsv("FR", "75001", long, "Île-de-France", "11", "Paris", "75", "", "", "48.86", "2.34"))
	require.NoError(t, err)
	assert.Equal(t, MaxPlaceNameLength, len([]rune(row.Postal.PlaceName)))
	assert.Equal(t, 1, row.Postal.Accuracy)
	assert.Nil(t, row.Postal.Admin3Name)
}

func TestParseBlankCountryFallsBackToFile(t *testing.T) {
	p := New(placedomain.CategoryPostal, "nc", config.DefaultFeatureCodes())
	row, err := p.Parse(tsv("", "98800", "Nouméa", "", "", "", "", "", "", "-22.27", "166.44", "4"))
	require.NoError(t, err)
	assert.Equal(t, "NC", row.Postal.CountryCode)
	assert.Equal(t, 4, row.Postal.Accuracy)

	global := New(placedomain.CategoryHeritage, "", config.DefaultFeatureCodes())
	_, err = global.Parse(dumpLine("1", "Site", "Site", "0", "0", "S", "MNMT", "", "", ""))
	assert.Equal(t, ingestdomain.ReasonInvalidCountry, Reason(err))
}

func TestAlternateNamesBounded(t *testing.T) {
	parts := make([]string, 0, 300)
	for i := 0; i < 300; i++ {
		parts = append(parts, "abcdefghi")
	}
	names := alternateNames(strings.Join(parts, ", "))
	joined := strings.Join(names, ",")
	assert.LessOrEqual(t, len(joined), MaxAlternateNameLength)
	assert.Equal(t, 100, len(names))
}
