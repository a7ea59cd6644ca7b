// Package parser turns tab-separated source lines into cleaned rows.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gosimple/unidecode"
	"github.com/smallbiznis/geoatlas/internal/config"
	"github.com/smallbiznis/geoatlas/internal/geo"
	ingestdomain "github.com/smallbiznis/geoatlas/internal/ingest/domain"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
)

const (
	MaxNameLength          = 200
	MaxPlaceNameLength     = 180
	MaxAdminNameLength     = 100
	MaxCodeLength          = 20
	MaxTimezoneLength      = 40
	MaxAlternateNameLength = 1000

	elevationAbsent = -9999
)

// Sentinels carry the skip reason as their message.
var (
	ErrBlankLine      = errors.New("blank_line")
	ErrMalformed      = errors.New(ingestdomain.ReasonMalformed)
	ErrOutOfRange     = errors.New(ingestdomain.ReasonOutOfRange)
	ErrInvalidCountry = errors.New(ingestdomain.ReasonInvalidCountry)
	ErrInvalidNumber  = errors.New(ingestdomain.ReasonInvalidNumber)
	ErrLodging        = errors.New(ingestdomain.ReasonLodging)
	ErrNotSite        = errors.New(ingestdomain.ReasonNotSite)
)

var reasons = []error{ErrMalformed, ErrOutOfRange, ErrInvalidCountry, ErrInvalidNumber, ErrLodging, ErrNotSite}

// Reason maps a parse error to its skip reason. Unknown errors count as malformed.
func Reason(err error) string {
	for _, sentinel := range reasons {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ingestdomain.ReasonMalformed
}

// Point is a cleaned row for the geonames, heritage and cultural tables.
type Point struct {
	placedomain.SpatialPoint
	FeatureClass string
	FeatureCode  string
	Population   int64
}

// Row holds exactly one of Point or Postal.
type Row struct {
	Point  *Point
	Postal *placedomain.PostalLocality
}

// column positions of the two point layouts
type pointLayout struct {
	admin1, admin2, population, elevation, timezone, modified int
}

var (
	dumpLayout    = pointLayout{admin1: 10, admin2: 11, population: 14, elevation: 15, timezone: 17, modified: 18}
	compactLayout = pointLayout{admin1: 9, admin2: 10, population: 11, elevation: 12, timezone: 13, modified: 14}
)

type Parser struct {
	category placedomain.Category
	country  string
	codes    config.FeatureCodes
}

// New returns a parser for one source file. country is the code derived
// from the file name and fills rows whose country column is blank.
func New(category placedomain.Category, country string, codes config.FeatureCodes) *Parser {
	return &Parser{
		category: category,
		country:  strings.ToUpper(strings.TrimSpace(country)),
		codes:    codes.Normalized(),
	}
}

// Parse cleans one line. Blank lines return ErrBlankLine and are not counted.
func (p *Parser) Parse(line string) (Row, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Row{}, ErrBlankLine
	}
	fields := strings.Split(line, "\t")

	if p.category == placedomain.CategoryPostal {
		postal, err := p.parsePostal(fields)
		if err != nil {
			return Row{}, err
		}
		return Row{Postal: &postal}, nil
	}

	point, err := p.parsePoint(fields)
	if err != nil {
		return Row{}, err
	}
	return Row{Point: &point}, nil
}

func (p *Parser) parsePoint(fields []string) (Point, error) {
	var layout pointLayout
	switch len(fields) {
	case 19:
		layout = dumpLayout
	case 14, 15:
		layout = compactLayout
	default:
		return Point{}, fmt.Errorf("%w: %d fields", ErrMalformed, len(fields))
	}

	sourceID, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: id %q", ErrMalformed, fields[0])
	}
	name := strings.TrimSpace(fields[1])
	if name == "" {
		return Point{}, fmt.Errorf("%w: empty name", ErrMalformed)
	}
	lat, lon, err := parseCoordinates(fields[4], fields[5])
	if err != nil {
		return Point{}, err
	}
	country, err := p.countryCode(fields[8])
	if err != nil {
		return Point{}, err
	}
	population, err := parseNonNegative(field(fields, layout.population), 0)
	if err != nil {
		return Point{}, err
	}

	point := Point{
		SpatialPoint: placedomain.SpatialPoint{
			SourceID:         sourceID,
			Name:             truncate(name, MaxNameLength),
			ASCIIName:        asciiName(fields[2], name),
			AlternateNames:   alternateNames(fields[3]),
			Latitude:         lat,
			Longitude:        lon,
			CountryCode:      country,
			Admin1Code:       optional(field(fields, layout.admin1), MaxCodeLength),
			Admin2Code:       optional(field(fields, layout.admin2), MaxCodeLength),
			Elevation:        elevation(field(fields, layout.elevation)),
			Timezone:         optional(field(fields, layout.timezone), MaxTimezoneLength),
			ModificationDate: modificationDate(field(fields, layout.modified)),
		},
		FeatureClass: strings.ToUpper(truncate(strings.TrimSpace(fields[6]), 1)),
		FeatureCode:  strings.ToUpper(truncate(strings.TrimSpace(fields[7]), 10)),
		Population:   int64(population),
	}

	switch p.category {
	case placedomain.CategoryHeritage, placedomain.CategoryCultural:
		if p.codes.IsLodging(point.FeatureCode) {
			return Point{}, fmt.Errorf("%w: %s", ErrLodging, point.FeatureCode)
		}
		if point.FeatureClass != p.codes.SiteClass {
			return Point{}, fmt.Errorf("%w: class %q", ErrNotSite, point.FeatureClass)
		}
	}
	return point, nil
}

func (p *Parser) parsePostal(fields []string) (placedomain.PostalLocality, error) {
	if len(fields) != 11 && len(fields) != 12 {
		return placedomain.PostalLocality{}, fmt.Errorf("%w: %d fields", ErrMalformed, len(fields))
	}

	postalCode := strings.TrimSpace(fields[1])
	placeName := strings.TrimSpace(fields[2])
	if postalCode == "" || placeName == "" {
		return placedomain.PostalLocality{}, fmt.Errorf("%w: empty postal code or place", ErrMalformed)
	}
	lat, lon, err := parseCoordinates(fields[9], fields[10])
	if err != nil {
		return placedomain.PostalLocality{}, err
	}
	country, err := p.countryCode(fields[0])
	if err != nil {
		return placedomain.PostalLocality{}, err
	}
	accuracy, err := parseNonNegative(field(fields, 11), 1)
	if err != nil {
		return placedomain.PostalLocality{}, err
	}

	return placedomain.PostalLocality{
		CountryCode: country,
		PostalCode:  truncate(postalCode, MaxCodeLength),
		PlaceName:   truncate(placeName, MaxPlaceNameLength),
		Admin1Name:  optional(fields[3], MaxAdminNameLength),
		Admin1Code:  optional(fields[4], MaxCodeLength),
		Admin2Name:  optional(fields[5], MaxAdminNameLength),
		Admin2Code:  optional(fields[6], MaxCodeLength),
		Admin3Name:  optional(fields[7], MaxAdminNameLength),
		Admin3Code:  optional(fields[8], MaxCodeLength),
		Latitude:    lat,
		Longitude:   lon,
		Accuracy:    accuracy,
	}, nil
}

func parseCoordinates(rawLat, rawLon string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: latitude %q", ErrMalformed, rawLat)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(rawLon), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: longitude %q", ErrMalformed, rawLon)
	}
	if !geo.InRange(lat, lon) {
		return 0, 0, fmt.Errorf("%w: (%v, %v)", ErrOutOfRange, lat, lon)
	}
	return lat, lon, nil
}

func (p *Parser) countryCode(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		raw = p.country
	}
	code, ok := placedomain.NormalizeCountry(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCountry, code)
	}
	return code, nil
}

// parseNonNegative treats blank or unparsable values as def and rejects negatives.
func parseNonNegative(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def, nil
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidNumber, value)
	}
	return int(value), nil
}

func elevation(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value == elevationAbsent {
		return nil
	}
	return &value
}

func modificationDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil
	}
	return &t
}

func asciiName(raw, name string) string {
	ascii := strings.TrimSpace(raw)
	if ascii == "" {
		ascii = strings.TrimSpace(unidecode.Unidecode(name))
	}
	if ascii == "" {
		ascii = name
	}
	return truncate(ascii, MaxNameLength)
}

// alternateNames keeps names in order while the comma-joined length fits.
func alternateNames(raw string) []string {
	var out []string
	total := 0
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		size := utf8.RuneCountInString(part)
		if len(out) > 0 {
			size++
		}
		if total+size > MaxAlternateNameLength {
			break
		}
		total += size
		out = append(out, part)
	}
	return out
}

func optional(raw string, max int) *string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	value = truncate(value, max)
	return &value
}

func field(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
