package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// LoadSymbols reads the symbol universe from a CSV file. It uses the first
// column whose header contains "symbol", else the first column, and returns
// unique, sorted, uppercase tickers with suffix appended.
func LoadSymbols(path, suffix string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbol file %s: %w", path, err)
	}
	defer f.Close()

	return ParseSymbols(f, suffix)
}

// ParseSymbols is LoadSymbols over an arbitrary reader
func ParseSymbols(r io.Reader, suffix string) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("symbol file is empty")
		}
		return nil, fmt.Errorf("failed to read symbol header: %w", err)
	}

	col := 0
	for i, name := range header {
		if strings.Contains(strings.ToLower(name), "symbol") {
			col = i
			break
		}
	}

	suffix = strings.ToUpper(strings.TrimSpace(suffix))
	seen := make(map[string]struct{})
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read symbol row: %w", err)
		}
		if col >= len(record) {
			continue
		}
		sym := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(record[col]), " ", ""))
		if sym == "" {
			continue
		}
		if suffix != "" && !strings.HasSuffix(sym, suffix) {
			sym += suffix
		}
		seen[sym] = struct{}{}
	}

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}
