// Package export writes a ledger as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"finwise/internal/core"
)

// DefaultFilename is used when the caller does not name the output file.
const DefaultFilename = "financial_report.csv"

// Header is the fixed first line of every export.
var Header = []string{"Date", "Type", "Amount", "Category", "Description"}

type Options struct {
	CurrencySymbol string
	DateFormat     string // Go layout, defaults to time.DateTime
}

// WriteCSV writes the header and one line per row, in order.
func WriteCSV(w io.Writer, rows []core.Row, opts Options) error {
	layout := opts.DateFormat
	if layout == "" {
		layout = time.DateTime
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		rec := []string{
			r.Date.Format(layout),
			r.Kind.String(),
			opts.CurrencySymbol + r.Amount.StringFixed(2),
			r.Category,
			r.Description,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToFile creates (or truncates) path and writes the export into it.
func ToFile(path string, rows []core.Row, opts Options) (err error) {
	if path == "" {
		path = DefaultFilename
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return WriteCSV(f, rows, opts)
}
