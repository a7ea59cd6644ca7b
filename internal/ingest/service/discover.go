package service

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	ingestdomain "github.com/smallbiznis/geoatlas/internal/ingest/domain"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
)

type namePattern struct {
	re       *regexp.Regexp
	category placedomain.Category
}

var namePatterns = []namePattern{
	{regexp.MustCompile(`^(?i)([a-z]{2})\.txt$`), placedomain.CategoryGeonames},
	{regexp.MustCompile(`^allCountries\.txt$`), placedomain.CategoryGeonames},
	{regexp.MustCompile(`^(?i)([a-z]{2})_postal\.txt$`), placedomain.CategoryPostal},
	{regexp.MustCompile(`^unesco_heritage\.txt$`), placedomain.CategoryHeritage},
	{regexp.MustCompile(`^(?i)([a-z]{2})_heritage\.txt$`), placedomain.CategoryHeritage},
	{regexp.MustCompile(`^cultural_sites.*\.txt$`), placedomain.CategoryCultural},
	{regexp.MustCompile(`^(?i)([a-z]{2})_cultural\.txt$`), placedomain.CategoryCultural},
}

// Classify derives category and country from a file name. Country is empty
// for multi-country files.
func Classify(name string) (placedomain.Category, string, bool) {
	for _, p := range namePatterns {
		m := p.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		country := ""
		if len(m) > 1 {
			country = strings.ToUpper(m[1])
		}
		return p.category, country, true
	}
	return "", "", false
}

// Discover lists the recognized source files in dir, sorted by name.
func Discover(dir string) ([]ingestdomain.Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ingestdomain.ErrUnreadableSource, err)
	}

	sources := make([]ingestdomain.Source, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		category, country, ok := Classify(entry.Name())
		if !ok {
			continue
		}
		sources = append(sources, ingestdomain.Source{
			Path:     filepath.Join(dir, entry.Name()),
			Name:     entry.Name(),
			Category: category,
			Country:  country,
		})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources, nil
}
