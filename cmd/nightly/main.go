// cmd/nightly/main.go
// Enumerates the configured leagues and imports every completed tournament
// not yet in the database. Meant to run from cron; a failed tournament is
// logged and the rest still import.
//
// Usage:
//
//	LEAGUES="lg_w7Bw_7076,lg_InWB_0595" go run ./cmd/nightly
//	go run ./cmd/nightly -dry
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
	dry := flag.Bool("dry", false, "list new tournaments without importing")
	flag.Parse()

	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.Leagues) == 0 {
		logger.Fatal("LEAGUES is empty; nothing to monitor")
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

	client := n01.New(cfg.SourceBaseURL, cfg.LeagueBaseURL)
	driver := importer.New(st, client, resolver, clubs, logger, importer.Options{
		FetchDelay:      cfg.FetchDelay,
		StartScore:      cfg.StartScore,
		ReviewThreshold: cfg.ReviewThreshold,
	})

	skip := make(map[string]bool, len(cfg.SkipTournaments))
	for _, tdid := range cfg.SkipTournaments {
		skip[tdid] = true
	}

	var pending []string
	for _, lgid := range cfg.Leagues {
		list, err := client.SeasonList(ctx, lgid)
		if err != nil {
			logger.Error("season list failed", zap.String("lgid", lgid), zap.Error(err))
			continue
		}
		logger.Info("league enumerated", zap.String("lgid", lgid), zap.Int("tournaments", len(list)))

		for _, t := range list {
			if skip[t.TDID] {
				continue
			}
			existing, err := st.TournamentByTDID(ctx, t.TDID)
			if err != nil {
				logger.Fatal("lookup tournament failed", zap.String("tdid", t.TDID), zap.Error(err))
			}
			if existing != nil {
				continue
			}
			logger.Info("new tournament", zap.String("tdid", t.TDID), zap.String("title", t.Title))
			pending = append(pending, t.TDID)
		}
	}

	if len(pending) == 0 {
		logger.Info("no new tournaments")
		return
	}
	if *dry {
		logger.Info("dry run, nothing imported", zap.Int("pending", len(pending)))
		return
	}

	failed := 0
	for _, tdid := range pending {
		if ctx.Err() != nil {
			logger.Warn("interrupted", zap.Int("remaining", len(pending)))
			break
		}
		if _, err := driver.ImportTournament(ctx, tdid); err != nil {
			logger.Error("import failed", zap.String("tdid", tdid), zap.Error(err))
			failed++
		}
	}

	logger.Info("nightly run finished",
		zap.Int("imported", len(pending)-failed),
		zap.Int("failed", failed))
	if failed > 0 {
		os.Exit(1)
	}
}
