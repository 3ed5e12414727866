package dictionary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kirillkom/scan-resolver/internal/core/barcode"
	"github.com/kirillkom/scan-resolver/internal/core/domain"
)

// ShardKey maps a code to <category>/<first 3>/<first 4>.csv.
func ShardKey(category, code string) (string, error) {
	if len(code) < 4 {
		return "", fmt.Errorf("code %q is too short to shard", code)
	}
	return fmt.Sprintf("%s/%s/%s.csv", strings.Trim(category, "/"), code[:3], code[:4]), nil
}

type table struct {
	header map[string]int
	rows   [][]string
}

func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	t := &table{header: make(map[string]int)}
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if blankRecord(rec) {
			continue
		}
		if first {
			for i, h := range rec {
				key := normalizeHeader(h)
				if _, dup := t.header[key]; !dup {
					t.header[key] = i
				}
			}
			first = false
			continue
		}
		t.rows = append(t.rows, rec)
	}
	if first {
		return nil, fmt.Errorf("read csv: missing header row")
	}
	return t, nil
}

// indices resolves candidate header names to column positions, keeping order.
func (t *table) indices(names []string) []int {
	out := make([]int, 0, len(names))
	seen := make(map[int]bool, len(names))
	for _, name := range names {
		idx, ok := t.header[normalizeHeader(name)]
		if !ok || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}

func cell(row []string, idx []int) string {
	for _, i := range idx {
		if i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			return v
		}
	}
	return ""
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

type janRow struct {
	jan13  string
	record domain.DictionaryRecord
}

type gtinRow struct {
	gtin14 string
	jan13  string
}

func parseJANShard(r io.Reader, cols Columns) ([]janRow, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	var (
		code   = t.indices(cols.JAN13)
		name   = t.indices(cols.ProductName)
		maker  = t.indices(cols.ManufacturerName)
		no     = t.indices(cols.ProductNo)
		sta    = t.indices(cols.ProductSta)
		toku   = t.indices(cols.TokuteiName)
		priceI = t.indices(cols.TotalReimbursementPriceYen)
	)
	if len(code) == 0 {
		return nil, nil
	}

	rows := make([]janRow, 0, len(t.rows))
	for _, rec := range t.rows {
		rows = append(rows, janRow{
			jan13: barcode.DigitsOnly(cell(rec, code)),
			record: domain.DictionaryRecord{
				ProductName:                cell(rec, name),
				ManufacturerName:           cell(rec, maker),
				ProductNo:                  cell(rec, no),
				ProductSta:                 cell(rec, sta),
				TokuteiName:                cell(rec, toku),
				TotalReimbursementPriceYen: ParsePrice(cell(rec, priceI)),
			},
		})
	}
	return rows, nil
}

func parseGTINShard(r io.Reader, cols Columns) ([]gtinRow, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	gtin := t.indices(cols.GTIN14)
	jan := t.indices(cols.JAN13)
	if len(gtin) == 0 {
		return nil, nil
	}

	rows := make([]gtinRow, 0, len(t.rows))
	for _, rec := range t.rows {
		rows = append(rows, gtinRow{
			gtin14: barcode.DigitsOnly(cell(rec, gtin)),
			jan13:  barcode.DigitsOnly(cell(rec, jan)),
		})
	}
	return rows, nil
}

// ParsePrice keeps only digits; anything unparseable becomes 0.
func ParsePrice(s string) int64 {
	digits := barcode.DigitsOnly(s)
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
