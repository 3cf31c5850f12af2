package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"roadreport/internal/deduction"
)

// RateEntry is one per-mile rate in a rates file. Rates are a list
// rather than a map because viper folds map keys to lower case and rate
// keys are case-sensitive ("medicalMoving").
type RateEntry struct {
	Key  string  `mapstructure:"key"`
	Rate float64 `mapstructure:"rate"`
}

// RatesFile is the shape of RATES_FILE (YAML, JSON or TOML):
//
//	default: business
//	rates:
//	  - key: business
//	    rate: 0.70
//	  - key: medicalMoving
//	    rate: 0.21
type RatesFile struct {
	Default string      `mapstructure:"default"`
	Rates   []RateEntry `mapstructure:"rates"`
}

// LoadRates reads a rates file and merges it over base. The returned
// default key is empty when the file does not name one.
func LoadRates(path string, base deduction.RateTable) (deduction.RateTable, string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, "", fmt.Errorf("read rates file %s: %w", path, err)
	}

	var file RatesFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, "", fmt.Errorf("decode rates file %s: %w", path, err)
	}

	overrides := make(map[string]float64, len(file.Rates))
	for i, e := range file.Rates {
		key := strings.TrimSpace(e.Key)
		if key == "" {
			return nil, "", fmt.Errorf("rates file %s: entry %d has no key", path, i+1)
		}
		if _, dup := overrides[key]; dup {
			return nil, "", fmt.Errorf("rates file %s: duplicate key %q", path, key)
		}
		overrides[key] = e.Rate
	}

	if base == nil {
		base = deduction.DefaultRates()
	}
	table := base.Merge(overrides)
	if err := table.Validate(); err != nil {
		return nil, "", fmt.Errorf("rates file %s: %w", path, err)
	}

	def := strings.TrimSpace(file.Default)
	if def != "" {
		if _, ok := table[def]; !ok {
			return nil, "", fmt.Errorf("rates file %s: default %q is not a known rate", path, def)
		}
	}
	return table, def, nil
}

// RateTable returns the default rates with RATES_FILE applied, and the
// rate key reports use when none is given.
func (c *Config) RateTable() (deduction.RateTable, string, error) {
	table := deduction.DefaultRates()
	def := c.DefaultRateKey
	if c.RatesFile != "" {
		loaded, fileDef, err := LoadRates(c.RatesFile, table)
		if err != nil {
			return nil, "", err
		}
		table = loaded
		if fileDef != "" && (def == "" || def == deduction.RateBusiness) {
			def = fileDef
		}
	}
	if _, ok := table[def]; !ok {
		return nil, "", fmt.Errorf("default rate key %q is not in the rate table", def)
	}
	return table, def, nil
}
