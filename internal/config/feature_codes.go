package config

import (
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// FeatureCodes holds the feature-code lists that drive filtering and projections.
type FeatureCodes struct {
	TouristCodes  []string `mapstructure:"touristCodes"`
	CityCodes     []string `mapstructure:"cityCodes"`
	LodgingCodes  []string `mapstructure:"lodgingCodes"`
	SiteClass     string   `mapstructure:"siteClass"`
	MinPopulation int64    `mapstructure:"minPopulation"`
}

func DefaultFeatureCodes() FeatureCodes {
	return FeatureCodes{
		TouristCodes: []string{
			"MUS", "MNMT", "HSTS", "RUIN", "CSTL", "PAL", "CH", "MSQE", "TMPL", "SHRN",
			"ARCH", "AMTH", "THTR", "GDN", "TOWR", "PRK", "ZOO", "OPRA", "LIBR",
		},
		CityCodes:     []string{"PPL", "PPLA", "PPLA2", "PPLA3", "PPLA4", "PPLC", "PPLS", "PPLG"},
		LodgingCodes:  []string{"HTL", "HTLS", "MTL", "RSRT", "LDGE"},
		SiteClass:     "S",
		MinPopulation: DefaultMajorCityMinPopulation,
	}
}

// Normalized upper-cases every code and drops blanks.
func (f FeatureCodes) Normalized() FeatureCodes {
	f.TouristCodes = normalizeCodes(f.TouristCodes)
	f.CityCodes = normalizeCodes(f.CityCodes)
	f.LodgingCodes = normalizeCodes(f.LodgingCodes)
	f.SiteClass = strings.ToUpper(strings.TrimSpace(f.SiteClass))
	return f
}

// IsLodging reports whether code is in the lodging exclusion list.
func (f FeatureCodes) IsLodging(code string) bool {
	return containsCode(f.LodgingCodes, code)
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func containsCode(codes []string, code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

type FeatureCodesHolder struct {
	current atomic.Value // holds FeatureCodes
}

// NewStaticFeatureCodesHolder serves fixed lists without watching any file.
func NewStaticFeatureCodesHolder(codes FeatureCodes) *FeatureCodesHolder {
	holder := &FeatureCodesHolder{}
	holder.current.Store(codes.Normalized())
	return holder
}

// NewFeatureCodesHolder reads feature_codes.yml and reloads it on change.
// Missing files fall back to DefaultFeatureCodes.
func NewFeatureCodesHolder(cfg Config, log *zap.Logger) (*FeatureCodesHolder, error) {
	log = log.Named("config.feature_codes")
	v := viper.New()

	if path := strings.TrimSpace(cfg.FeatureCodesPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("feature_codes")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/geoatlas")
		v.AddConfigPath(filepath.Join(cfg.Ingest.DataDir, "config"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GEOATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultFeatureCodes()
	defaults.MinPopulation = cfg.MajorCityMinPopulation
	v.SetDefault("features.touristCodes", defaults.TouristCodes)
	v.SetDefault("features.cityCodes", defaults.CityCodes)
	v.SetDefault("features.lodgingCodes", defaults.LodgingCodes)
	v.SetDefault("features.siteClass", defaults.SiteClass)
	v.SetDefault("features.minPopulation", defaults.MinPopulation)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
		log.Info("feature code file not found, using defaults")
	}

	var codes FeatureCodes
	if err := v.UnmarshalKey("features", &codes); err != nil {
		return nil, err
	}
	codes = codes.Normalized()
	if err := validateFeatureCodes(codes); err != nil {
		return nil, err
	}

	holder := &FeatureCodesHolder{}
	holder.current.Store(codes)

	if watch {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated FeatureCodes
			if err := v.UnmarshalKey("features", &updated); err != nil {
				log.Warn("reload failed", zap.Error(err))
				return
			}
			updated = updated.Normalized()
			if err := validateFeatureCodes(updated); err != nil {
				log.Warn("invalid feature codes ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("feature codes reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *FeatureCodesHolder) Get() FeatureCodes {
	return h.current.Load().(FeatureCodes)
}

func validateFeatureCodes(codes FeatureCodes) error {
	if len(codes.TouristCodes) == 0 {
		return errors.New("features.touristCodes cannot be empty")
	}
	if len(codes.CityCodes) == 0 {
		return errors.New("features.cityCodes cannot be empty")
	}
	if codes.MinPopulation < 0 {
		return errors.New("features.minPopulation cannot be negative")
	}
	return nil
}
