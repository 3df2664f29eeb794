package collector

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"MomentumTracker/internal/model"
)

// LoadUniverse reads the ticker list. The file is re-read every run.
func LoadUniverse(path string) ([]model.TickerSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.ConfigError{Field: "universe_file", Err: err}
	}
	defer f.Close()
	return ParseUniverse(f)
}

// ParseUniverse parses a ticker,name,region CSV with a header row.
func ParseUniverse(r io.Reader) ([]model.TickerSpec, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &model.ConfigError{Field: "universe", Err: errors.New("empty ticker list")}
	}
	if err != nil {
		return nil, &model.ConfigError{Field: "universe", Err: err}
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	symCol, ok := cols["ticker"]
	if !ok {
		if symCol, ok = cols["symbol"]; !ok {
			return nil, &model.ConfigError{Field: "universe", Err: errors.New("missing ticker column")}
		}
	}
	nameCol, hasName := cols["name"]
	regionCol, hasRegion := cols["region"]

	var out []model.TickerSpec
	seen := map[string]int{}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &model.ConfigError{Field: "universe", Err: fmt.Errorf("line %d: %w", line, err)}
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		t := model.TickerSpec{Symbol: field(rec, symCol)}
		if t.Symbol == "" {
			return nil, &model.ConfigError{Field: "universe", Err: fmt.Errorf("line %d: blank ticker", line)}
		}
		if prev, dup := seen[t.Symbol]; dup {
			return nil, &model.ConfigError{Field: "universe", Err: fmt.Errorf("line %d: duplicate ticker %s (first on line %d)", line, t.Symbol, prev)}
		}
		seen[t.Symbol] = line
		if hasName {
			t.Name = field(rec, nameCol)
		}
		if t.Name == "" {
			t.Name = t.Symbol
		}
		if hasRegion {
			t.Region = field(rec, regionCol)
		}
		out = append(out, t)
	}

	if len(out) == 0 {
		return nil, &model.ConfigError{Field: "universe", Err: errors.New("empty ticker list")}
	}
	return out, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}
