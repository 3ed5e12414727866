// Command dictbuild converts a master material list into the sharded CSV
// tree read by the dictionary resolver.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/scan-resolver/internal/config"
	"github.com/kirillkom/scan-resolver/internal/infrastructure/dictionary"
	"github.com/kirillkom/scan-resolver/internal/infrastructure/masterfile"
	"github.com/kirillkom/scan-resolver/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/scan-resolver/internal/observability/logging"
)

func main() {
	cfg := config.Load()

	var (
		masterPath = flag.String("master", "", "path to the master list (.xlsx or .csv)")
		outRoot    = flag.String("out", cfg.DictRoot, "root directory of the shard tree")
		sheet      = flag.String("sheet", cfg.DictMasterSheet, "worksheet name, defaults to the first sheet")
		titleRow   = flag.Bool("title-row", cfg.DictMasterHasTitle, "skip a banner row above the header")
		columns    = flag.String("columns", cfg.DictColumnsFile, "YAML header synonym overrides")
	)
	flag.Parse()

	logger := logging.Install("scan-dictbuild", cfg.LogLevel)
	if *masterPath == "" {
		logger.Error("dictbuild_missing_master", "hint", "pass -master <file>")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *masterPath, *outRoot, *sheet, *titleRow, *columns, cfg); err != nil {
		logger.Error("dictbuild_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, masterPath, outRoot, sheet string, titleRow bool, columnsFile string, cfg config.Config) error {
	cols, err := dictionary.LoadColumns(columnsFile)
	if err != nil {
		return err
	}
	entries, err := masterfile.ReadFile(masterPath, masterfile.Options{
		Sheet:        sheet,
		SkipTitleRow: titleRow,
		Columns:      cols,
	})
	if err != nil {
		return err
	}

	storage, err := localfs.New(outRoot)
	if err != nil {
		return err
	}
	stats, err := dictionary.NewWriter(storage, cfg.DictJANCategory, cfg.DictGTINCategory).Write(ctx, entries)
	if err != nil {
		return err
	}

	slog.Info("dictbuild_done",
		"master", masterPath,
		"out", outRoot,
		"jan_rows", stats.JANRows,
		"gtin_rows", stats.GTINRows,
		"skipped", stats.Skipped,
		"shard_files", stats.ShardFiles,
	)
	return nil
}
