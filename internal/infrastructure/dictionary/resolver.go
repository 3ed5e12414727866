// Package dictionary resolves JAN-13 and GTIN-14 codes against sharded CSV files.
package dictionary

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/scan-resolver/internal/core/barcode"
	"github.com/kirillkom/scan-resolver/internal/core/domain"
	"github.com/kirillkom/scan-resolver/internal/core/ports"
)

const (
	IndexJAN  = "jan"
	IndexGTIN = "gtin"
)

// FetchObserver records shard fetch latency by index and outcome.
type FetchObserver interface {
	ObserveShardFetch(index, status string, duration time.Duration)
}

type Options struct {
	JANCategory  string
	GTINCategory string
	Columns      *Columns
	Observer     FetchObserver
}

type Resolver struct {
	source       ports.ShardSource
	cols         Columns
	janCategory  string
	gtinCategory string
	observer     FetchObserver
}

func NewResolver(source ports.ShardSource, opts Options) *Resolver {
	cols := DefaultColumns()
	if opts.Columns != nil {
		cols = *opts.Columns
	}
	janCategory := opts.JANCategory
	if janCategory == "" {
		janCategory = IndexJAN
	}
	gtinCategory := opts.GTINCategory
	if gtinCategory == "" {
		gtinCategory = IndexGTIN
	}
	return &Resolver{
		source:       source,
		cols:         cols,
		janCategory:  janCategory,
		gtinCategory: gtinCategory,
		observer:     opts.Observer,
	}
}

func (r *Resolver) LookupByJAN13(ctx context.Context, jan13 string) domain.LookupOutcome {
	if !barcode.IsDigits(jan13, 13) {
		return domain.NoMatch()
	}
	key, err := ShardKey(r.janCategory, jan13)
	if err != nil {
		return domain.NoMatch()
	}

	start := time.Now()
	rows, err := r.fetchJAN(ctx, key)
	if err != nil {
		r.observe(IndexJAN, string(domain.DictStatusFetchError), start)
		slog.Warn("shard_fetch_failed", "index", IndexJAN, "shard", key, "error", err)
		return domain.FetchError(err.Error())
	}

	for _, row := range rows {
		if row.jan13 == jan13 {
			r.observe(IndexJAN, string(domain.DictStatusHit), start)
			return domain.Hit(row.record)
		}
	}
	r.observe(IndexJAN, string(domain.DictStatusNoMatch), start)
	return domain.NoMatch()
}

func (r *Resolver) LookupJANFromGTIN14(ctx context.Context, gtin14 string) domain.GTINLookup {
	if !barcode.IsDigits(gtin14, 14) {
		return domain.GTINLookup{Status: domain.DictStatusNoMatch}
	}
	key, err := ShardKey(r.gtinCategory, gtin14)
	if err != nil {
		return domain.GTINLookup{Status: domain.DictStatusNoMatch}
	}

	start := time.Now()
	rows, err := r.fetchGTIN(ctx, key)
	if err != nil {
		r.observe(IndexGTIN, string(domain.DictStatusFetchError), start)
		slog.Warn("shard_fetch_failed", "index", IndexGTIN, "shard", key, "error", err)
		return domain.GTINLookup{Status: domain.DictStatusFetchError, Error: err.Error()}
	}

	for _, row := range rows {
		if row.gtin14 == gtin14 && barcode.IsDigits(row.jan13, 13) {
			r.observe(IndexGTIN, string(domain.DictStatusHit), start)
			return domain.GTINLookup{Status: domain.DictStatusHit, JAN13: row.jan13}
		}
	}
	r.observe(IndexGTIN, string(domain.DictStatusNoMatch), start)
	return domain.GTINLookup{Status: domain.DictStatusNoMatch}
}

func (r *Resolver) fetchJAN(ctx context.Context, key string) ([]janRow, error) {
	body, err := r.source.Open(ctx, key)
	if err != nil {
		return nil, domain.WrapError(domain.ErrShardUnavailable, "open "+key, err)
	}
	defer body.Close()

	rows, err := parseJANShard(body, r.cols)
	if err != nil {
		return nil, domain.WrapError(domain.ErrShardUnavailable, "parse "+key, err)
	}
	return rows, nil
}

func (r *Resolver) fetchGTIN(ctx context.Context, key string) ([]gtinRow, error) {
	body, err := r.source.Open(ctx, key)
	if err != nil {
		return nil, domain.WrapError(domain.ErrShardUnavailable, "open "+key, err)
	}
	defer body.Close()

	rows, err := parseGTINShard(body, r.cols)
	if err != nil {
		return nil, domain.WrapError(domain.ErrShardUnavailable, "parse "+key, err)
	}
	return rows, nil
}

func (r *Resolver) observe(index, status string, start time.Time) {
	if r.observer == nil {
		return
	}
	r.observer.ObserveShardFetch(index, status, time.Since(start))
}
