package collector

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"MomentumTracker/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUniverse(t *testing.T) {
	in := "Ticker , Name, Region\nAAPL, Apple,US\n\nSAP.DE,SAP SE,EU\nNVDA,,US\n"
	got, err := ParseUniverse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []model.TickerSpec{
		{Symbol: "AAPL", Name: "Apple", Region: "US"},
		{Symbol: "SAP.DE", Name: "SAP SE", Region: "EU"},
		{Symbol: "NVDA", Name: "NVDA", Region: "US"},
	}, got)
}

func TestParseUniverse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty file", "", "empty ticker list"},
		{"header only", "ticker,name,region\n", "empty ticker list"},
		{"no ticker column", "name,region\nApple,US\n", "missing ticker column"},
		{"blank ticker", "ticker,name\n ,Nobody\n", "blank ticker"},
		{"duplicate", "ticker\nAAPL\nMSFT\nAAPL\n", "duplicate ticker AAPL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUniverse(strings.NewReader(tt.in))
			require.Error(t, err)
			var ce *model.ConfigError
			assert.True(t, errors.As(err, &ce))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadUniverse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickers.csv")
	require.NoError(t, os.WriteFile(path, []byte("symbol,name\nMSFT,Microsoft\n"), 0644))

	got, err := LoadUniverse(path)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", got[0].Symbol)

	_, err = LoadUniverse(filepath.Join(dir, "missing.csv"))
	var ce *model.ConfigError
	assert.ErrorAs(t, err, &ce)
}
