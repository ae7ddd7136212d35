// cmd/importcup/main.go
// Imports one tournament by its source identifier. Safe to re-run: every
// write is keyed on source identifiers and detail fetches resume from
// whatever the previous run left incomplete.
//
// Usage:
//
//	go run ./cmd/importcup -tdid t_ALIS_0219
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/goldenstat/goldenstat/config"
	"github.com/goldenstat/goldenstat/corrections"
	bundb "github.com/goldenstat/goldenstat/db"
	"github.com/goldenstat/goldenstat/importer"
	applog "github.com/goldenstat/goldenstat/logger"
	"github.com/goldenstat/goldenstat/n01"
	"github.com/goldenstat/goldenstat/resolve"
	"github.com/goldenstat/goldenstat/store"
)

func main() {
	tdid := flag.String("tdid", "", "tournament identifier (required)")
	flag.Parse()

	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if *tdid == "" {
		logger.Fatal("-tdid is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := bundb.Setup(cfg)
	defer db.Close()
	if err := bundb.CreateTables(ctx, db); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}

	st := store.New(db, logger)

	clubs, err := resolve.LoadClubMap(cfg.ClubsFile)
	if err != nil {
		logger.Fatal("load club map failed", zap.Error(err))
	}
	overlaps := resolve.NewOverlapDetector(st, clubs, resolve.DefaultThresholds())
	resolver := resolve.NewResolver(st, clubs, overlaps)

	ops, err := corrections.Load(cfg.CorrectionsFile)
	if err != nil {
		logger.Fatal("load corrections failed", zap.Error(err))
	}
	if err := corrections.NewApplier(st, overlaps, logger).Apply(ctx, ops); err != nil {
		logger.Fatal("apply corrections failed", zap.Error(err))
	}

	driver := importer.New(st, n01.New(cfg.SourceBaseURL, cfg.LeagueBaseURL), resolver, clubs, logger, importer.Options{
		FetchDelay:      cfg.FetchDelay,
		StartScore:      cfg.StartScore,
		ReviewThreshold: cfg.ReviewThreshold,
	})

	stats, err := driver.ImportTournament(ctx, *tdid)
	if err != nil {
		logger.Fatal("import failed", zap.String("tdid", *tdid), zap.Error(err))
	}
	logger.Info("import finished",
		zap.String("tdid", *tdid),
		zap.Int("participants", stats.Participants),
		zap.Int("matches", stats.Matches),
		zap.Int("details", stats.Details),
		zap.Int("legs", stats.Legs),
		zap.Int("reviews", stats.Reviews))
}
