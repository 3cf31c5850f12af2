package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadreport/internal/deduction"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRatesYAML(t *testing.T) {
	path := writeFile(t, "rates.yaml", `
default: medicalMoving
rates:
  - key: business
    rate: 0.67
  - key: medicalMoving
    rate: 0.22
  - key: volunteer
    rate: 0.14
`)
	table, def, err := LoadRates(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "medicalMoving", def)
	assert.Equal(t, 0.67, table[deduction.RateBusiness])
	assert.Equal(t, 0.22, table[deduction.RateMedicalMoving], "keys keep their case")
	assert.Equal(t, 0.14, table["volunteer"])
	assert.Equal(t, 0.14, table[deduction.RateCharitable], "defaults kept")
}

func TestLoadRatesJSON(t *testing.T) {
	path := writeFile(t, "rates.json", `{"rates":[{"key":"charitable","rate":0.15}]}`)
	table, def, err := LoadRates(path, deduction.DefaultRates())
	require.NoError(t, err)
	assert.Empty(t, def)
	assert.Equal(t, 0.15, table[deduction.RateCharitable])
	assert.Equal(t, 0.70, table[deduction.RateBusiness])
}

func TestLoadRatesErrors(t *testing.T) {
	tests := map[string]string{
		"negative":        "rates:\n  - key: business\n    rate: -1\n",
		"missing key":     "rates:\n  - rate: 0.5\n",
		"duplicate":       "rates:\n  - key: business\n    rate: 0.5\n  - key: business\n    rate: 0.6\n",
		"unknown default": "default: boat\nrates: []\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := LoadRates(writeFile(t, "rates.yaml", content), nil)
			assert.Error(t, err)
		})
	}

	_, _, err := LoadRates(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestConfigRateTable(t *testing.T) {
	cfg := validConfig()
	table, def, err := cfg.RateTable()
	require.NoError(t, err)
	assert.Equal(t, deduction.DefaultRates(), table)
	assert.Equal(t, deduction.RateBusiness, def)

	cfg.RatesFile = writeFile(t, "rates.yaml", "default: charitable\nrates: []\n")
	_, def, err = cfg.RateTable()
	require.NoError(t, err)
	assert.Equal(t, deduction.RateCharitable, def, "file default applies when env is left at business")

	cfg.DefaultRateKey = deduction.RateMedicalMoving
	_, def, err = cfg.RateTable()
	require.NoError(t, err)
	assert.Equal(t, deduction.RateMedicalMoving, def, "explicit env default wins")

	cfg.RatesFile = ""
	cfg.DefaultRateKey = "boat"
	_, _, err = cfg.RateTable()
	assert.Error(t, err)
}
