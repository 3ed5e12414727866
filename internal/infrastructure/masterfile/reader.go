// Package masterfile reads a master material list (XLSX or CSV) into
// dictionary entries for the shard build tool.
package masterfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/scan-resolver/internal/infrastructure/dictionary"
)

type Options struct {
	// Sheet defaults to the first sheet of the workbook.
	Sheet string
	// SkipTitleRow drops a banner row above the header.
	SkipTitleRow bool
	Columns      dictionary.Columns
}

// ReadFile dispatches on the file extension.
func ReadFile(path string, opts Options) ([]dictionary.Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, opts)
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open master file: %w", err)
		}
		defer f.Close()
		return ReadCSV(f, opts)
	default:
		return nil, fmt.Errorf("unsupported master file type %q", filepath.Ext(path))
	}
}

func ReadXLSX(path string, opts Options) ([]dictionary.Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return toEntries(rows, opts)
}

func ReadCSV(r io.Reader, opts Options) ([]dictionary.Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read master csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return toEntries(rows, opts)
}

func toEntries(rows [][]string, opts Options) ([]dictionary.Entry, error) {
	if opts.SkipTitleRow && len(rows) > 0 {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("master file has no header row")
	}
	cols := opts.Columns
	if len(cols.JAN13) == 0 {
		cols = dictionary.DefaultColumns()
	}
	return dictionary.EntriesFromRows(rows[0], rows[1:], cols)
}
