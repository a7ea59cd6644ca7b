package domain

import "strings"

const (
	FeatureClassSpot      = "S"
	FeatureClassPopulated = "P"

	DefaultSiteType = "cultural_site"
)

var siteTypes = map[string]string{
	"MUS":  "museum",
	"MNMT": "monument",
	"HSTS": "historic_site",
	"RUIN": "ruins",
	"CSTL": "castle",
	"PAL":  "palace",
	"CH":   "church",
	"MSQE": "mosque",
	"TMPL": "temple",
	"SHRN": "shrine",
	"ARCH": "arch",
	"AMTH": "amphitheatre",
	"THTR": "theatre",
	"GDN":  "garden",
	"LIBR": "library",
	"OPRA": "opera_house",
}

// SiteType maps a feature code to the cultural site-type tag.
func SiteType(featureCode string) string {
	if t, ok := siteTypes[strings.ToUpper(strings.TrimSpace(featureCode))]; ok {
		return t
	}
	return DefaultSiteType
}

var featureDescriptions = map[string]string{
	"PPL":   "city",
	"PPLA":  "seat of a first-order administrative division",
	"PPLA2": "seat of a second-order administrative division",
	"PPLA3": "seat of a third-order administrative division",
	"PPLA4": "seat of a fourth-order administrative division",
	"PPLC":  "capital",
	"PPLS":  "populated places",
	"MUS":   "museum",
	"MNMT":  "monument",
	"HSTS":  "historical site",
	"RUIN":  "ruins",
	"CSTL":  "castle",
	"PAL":   "palace",
	"CH":    "church",
	"MSQE":  "mosque",
	"TMPL":  "temple",
	"SHRN":  "shrine",
	"TOWR":  "tower",
	"ARCH":  "arch",
	"GDN":   "garden",
	"BAY":   "bay",
	"BCH":   "beach",
	"CAPE":  "cape",
	"LK":    "lake",
	"STM":   "stream",
	"WTRF":  "waterfall",
	"MT":    "mountain",
	"PK":    "peak",
	"VLC":   "volcano",
	"ISL":   "island",
	"PASS":  "pass",
	"VAL":   "valley",
	"AIRP":  "airport",
	"PRT":   "port",
	"BDG":   "bridge",
	"UNIV":  "university",
}

var featureClassNames = map[string]string{
	"A": "administrative",
	"H": "hydrographic",
	"L": "area",
	"P": "populated place",
	"R": "road",
	"S": "spot",
	"T": "terrain",
	"U": "undersea",
	"V": "vegetation",
}

// DescribeFeature returns a readable label for a feature code, falling back to
// the feature class name.
func DescribeFeature(featureClass, featureCode string) string {
	if d, ok := featureDescriptions[strings.ToUpper(strings.TrimSpace(featureCode))]; ok {
		return d
	}
	if d, ok := featureClassNames[strings.ToUpper(strings.TrimSpace(featureClass))]; ok {
		return d
	}
	return ""
}

var cityTypes = map[string]string{
	"PPLC":  "capital",
	"PPLA":  "admin_seat",
	"PPLA2": "region_seat",
	"PPLA3": "district_seat",
	"PPLA4": "commune_seat",
	"PPLS":  "villages",
	"PPL":   "town",
}

// CityType labels a populated-place feature code. Other codes are "locality".
func CityType(featureCode string) string {
	if t, ok := cityTypes[strings.ToUpper(strings.TrimSpace(featureCode))]; ok {
		return t
	}
	return "locality"
}
