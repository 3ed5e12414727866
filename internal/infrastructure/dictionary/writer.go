package dictionary

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/kirillkom/scan-resolver/internal/core/barcode"
	"github.com/kirillkom/scan-resolver/internal/core/domain"
)

// ObjectWriter is the write side of shard storage.
type ObjectWriter interface {
	Save(ctx context.Context, key string, data io.Reader) error
}

// Entry is one master-file row destined for the shard tree.
type Entry struct {
	JAN13  string
	GTIN14 string
	Record domain.DictionaryRecord
}

type WriteStats struct {
	JANRows    int
	GTINRows   int
	Skipped    int
	ShardFiles int
}

var (
	janHeader  = []string{"jan13", "product_name", "manufacturer_name", "product_no", "product_sta", "tokutei_name", "total_reimbursement_price_yen"}
	gtinHeader = []string{"gtin14", "jan13"}
)

// Writer lays entries out using the same path scheme the Resolver reads.
type Writer struct {
	dst          ObjectWriter
	janCategory  string
	gtinCategory string
}

func NewWriter(dst ObjectWriter, janCategory, gtinCategory string) *Writer {
	if janCategory == "" {
		janCategory = IndexJAN
	}
	if gtinCategory == "" {
		gtinCategory = IndexGTIN
	}
	return &Writer{dst: dst, janCategory: janCategory, gtinCategory: gtinCategory}
}

func (w *Writer) Write(ctx context.Context, entries []Entry) (WriteStats, error) {
	var stats WriteStats
	janShards := make(map[string][][]string)
	gtinShards := make(map[string][][]string)

	for _, e := range entries {
		jan := barcode.DigitsOnly(e.JAN13)
		if !barcode.IsDigits(jan, 13) {
			stats.Skipped++
			continue
		}
		key, _ := ShardKey(w.janCategory, jan)
		janShards[key] = append(janShards[key], []string{
			jan,
			e.Record.ProductName,
			e.Record.ManufacturerName,
			e.Record.ProductNo,
			e.Record.ProductSta,
			e.Record.TokuteiName,
			strconv.FormatInt(e.Record.TotalReimbursementPriceYen, 10),
		})
		stats.JANRows++

		gtin := barcode.DigitsOnly(e.GTIN14)
		if !barcode.IsDigits(gtin, 14) {
			continue
		}
		gkey, _ := ShardKey(w.gtinCategory, gtin)
		gtinShards[gkey] = append(gtinShards[gkey], []string{gtin, jan})
		stats.GTINRows++
	}

	for _, group := range []struct {
		header []string
		shards map[string][][]string
	}{
		{header: janHeader, shards: janShards},
		{header: gtinHeader, shards: gtinShards},
	} {
		keys := make([]string, 0, len(group.shards))
		for k := range group.shards {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := w.save(ctx, key, group.header, group.shards[key]); err != nil {
				return stats, err
			}
			stats.ShardFiles++
		}
	}
	return stats, nil
}

func (w *Writer) save(ctx context.Context, key string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("encode %s header: %w", key, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("encode %s rows: %w", key, err)
	}
	if err := w.dst.Save(ctx, key, &buf); err != nil {
		return fmt.Errorf("save shard %s: %w", key, err)
	}
	return nil
}

// EntriesFromRows maps a header and data rows through the same synonym table
// the Resolver uses, so any file the Resolver can read can be re-sharded.
func EntriesFromRows(header []string, rows [][]string, cols Columns) ([]Entry, error) {
	t := &table{header: make(map[string]int, len(header))}
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := t.header[key]; !dup {
			t.header[key] = i
		}
	}
	jan := t.indices(cols.JAN13)
	if len(jan) == 0 {
		return nil, fmt.Errorf("no JAN-13 column among %v", header)
	}
	var (
		gtin   = t.indices(cols.GTIN14)
		name   = t.indices(cols.ProductName)
		maker  = t.indices(cols.ManufacturerName)
		no     = t.indices(cols.ProductNo)
		sta    = t.indices(cols.ProductSta)
		toku   = t.indices(cols.TokuteiName)
		priceI = t.indices(cols.TotalReimbursementPriceYen)
	)

	entries := make([]Entry, 0, len(rows))
	for _, rec := range rows {
		if blankRecord(rec) {
			continue
		}
		entries = append(entries, Entry{
			JAN13:  cell(rec, jan),
			GTIN14: cell(rec, gtin),
			Record: domain.DictionaryRecord{
				ProductName:                cell(rec, name),
				ManufacturerName:           cell(rec, maker),
				ProductNo:                  cell(rec, no),
				ProductSta:                 cell(rec, sta),
				TokuteiName:                cell(rec, toku),
				TotalReimbursementPriceYen: ParsePrice(cell(rec, priceI)),
			},
		})
	}
	return entries, nil
}
