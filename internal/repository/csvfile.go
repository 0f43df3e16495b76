package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

// appendRows appends rows to path, writing header first when the file is new or empty
func appendRows(path string, header []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > 0 {
		header = nil
	}
	return writeAndClose(f, path, header, rows)
}

// writeAndClose writes an optional header plus rows to wc and closes it.
// A failed close is reported since buffered appends may not have reached disk.
func writeAndClose(wc io.WriteCloser, path string, header []string, rows [][]string) error {
	w := csv.NewWriter(wc)
	if header != nil {
		if err := w.Write(header); err != nil {
			wc.Close()
			return fmt.Errorf("failed to write header to %s: %w", path, err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		wc.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// rewriteRows replaces path atomically with header plus rows
func rewriteRows(path string, header []string, rows [][]string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// table is a parsed CSV file addressed by lower-cased header name
type table struct {
	columns map[string]int
	records [][]string
}

// readTable loads path; a missing file returns os.ErrNotExist
func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseTable(f)
}

func parseTable(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &table{columns: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := &table{columns: make(map[string]int, len(header))}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := t.columns[key]; !dup {
			t.columns[key] = i
		}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	t.records = records
	return t, nil
}

// alias maps an alternative column name onto a canonical one when the canonical is absent
func (t *table) alias(canonical string, alternatives ...string) {
	if _, ok := t.columns[canonical]; ok {
		return
	}
	for _, alt := range alternatives {
		if idx, ok := t.columns[alt]; ok {
			t.columns[canonical] = idx
			return
		}
	}
}

func (t *table) require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := t.columns[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// get returns the trimmed cell for column name, or "" if absent
func (t *table) get(record []string, name string) string {
	idx, ok := t.columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// formatPrice renders the shortest exact decimal form of a price
func formatPrice(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// formatPercent renders a percentage rounded to four places
func formatPercent(v float64) string {
	return decimal.NewFromFloat(v).Round(4).String()
}

func parseFloat(raw, column string) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", column, raw, err)
	}
	f, _ := d.Float64()
	return f, nil
}

// parseOptionalFloat treats empty and NaN cells as absent
func parseOptionalFloat(raw, column string) (*float64, error) {
	switch strings.ToLower(raw) {
	case "", "nan", "null", "none":
		return nil, nil
	}
	f, err := parseFloat(raw, column)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
