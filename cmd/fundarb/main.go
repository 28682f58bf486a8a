package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcontainer "fundarb/internal/application/container"
	"fundarb/internal/application/service"
	"fundarb/internal/application/usecase/monitor"
	dsvc "fundarb/internal/domain/service"
	"fundarb/internal/infrastructure/config"
	infracontainer "fundarb/internal/infrastructure/container"
	"fundarb/internal/infrastructure/factory"
	"fundarb/internal/infrastructure/logger"
	"fundarb/internal/infrastructure/metrics"
	"fundarb/internal/interfaces/console"
	"fundarb/internal/interfaces/httpapi"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env 可选
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	logger.Setup("info")

	if err := run(*configPath); err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("fundarb failed")
	}
}

// run 出错时返回错误，由 main 统一退出
func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := infracontainer.New(cfg)
	if err != nil {
		return fmt.Errorf("init infrastructure: %w", err)
	}
	defer infra.Close()

	board := monitor.NewState(cfg.Symbols.List)

	deps := appcontainer.Deps{
		Repo:    infra.Repository(),
		Board:   board,
		Archive: infra.Archive(),
	}
	// 接口字段只在非 nil 时赋值
	if cache := infra.PriceCache(); cache != nil {
		deps.Cache = cache
	}
	if quoter := factory.NewPriceQuoter(cfg); quoter != nil {
		deps.Quoter = quoter
	}
	app := appcontainer.New(deps, appcontainer.Options{
		InitialCash:   cfg.App.InitialCash,
		FeeRate:       cfg.Arbitrage.FeeRate,
		FundingPeriod: cfg.FundingPeriod(),
		Risk: &dsvc.RiskManager{
			MaxOrderNotionalUsd:  cfg.Risk.MaxOrderNotionalUsd,
			MaxTotalNotionalUsd:  cfg.Risk.MaxTotalNotionalUsd,
			MaxPositionsPerAsset: cfg.Risk.MaxPositionsPerAsset,
			MaxLeverage:          cfg.Risk.MaxLeverage,
		},
	})

	prices := app.PriceService()
	if n, err := prices.Warm(ctx); err != nil {
		log.Warn().Err(err).Msg("warm price cache failed")
	} else if n > 0 {
		log.Info().Int("prices", n).Msg("board warmed from cache")
	}
	if deps.Quoter != nil {
		if quotes, err := prices.Refresh(ctx, cfg.Symbols.List); err != nil {
			log.Warn().Err(err).Msg("initial price refresh failed")
		} else {
			log.Info().Int("prices", len(quotes)).Msg("initial prices loaded")
		}
	}

	m := metrics.New("fundarb")

	c := cron.New()
	syncer := service.NewFundingRateSyncer(board, cfg.FundingSyncEvery(), factory.NewFundingSources(cfg)...)
	if _, err := syncer.Schedule(ctx, c, cfg.Symbols.List); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	feeds := factory.NewPriceFeeds(cfg)
	if len(feeds) == 0 {
		return errors.New("no exchange feeds enabled")
	}

	svc := monitor.NewService(monitor.ServiceDeps{
		Feeds:           feeds,
		Symbols:         cfg.Symbols.List,
		Account:         cfg.App.Account,
		SnapshotEvery:   cfg.SnapshotEvery(),
		SpreadThreshold: cfg.Arbitrage.SpreadThreshold,
		Sink:            console.NewSink(os.Stdout),
		State:           board,
		Prices:          prices,
		Snapshots:       app.SnapshotService(),
		Cron:            c,
		OnSnapshot:      observeSnapshot(m),
	})

	var srv *http.Server
	if cfg.HTTP.Enabled {
		api := httpapi.New(httpapi.Deps{
			Accounts:  app.AccountService(),
			Positions: app.PositionService(),
			Portfolio: app.PortfolioService(),
			Prices:    prices,
			Market:    board,
			Metrics:   m,
			Symbols:   cfg.Symbols.List,
		})
		srv = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.HTTP.Addr).Msg("http api listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server failed")
				stop()
			}
		}()
	}

	log.Info().
		Str("config", configPath).
		Str("account", cfg.App.Account).
		Int("symbols", len(cfg.Symbols.List)).
		Dur("snapshot_every", cfg.SnapshotEvery()).
		Dur("funding_sync_every", cfg.FundingSyncEvery()).
		Float64("spread_threshold", cfg.Arbitrage.SpreadThreshold).
		Msg("fundarb started")

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("monitor service exited")
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown failed")
		}
	}
	log.Info().Msg("fundarb stopped")
	return nil
}

// observeSnapshot 快照结果写入 prometheus
func observeSnapshot(m *metrics.Metrics) monitor.SnapshotObserver {
	return func(snap service.Snapshot, err error) {
		if err != nil {
			m.ObserveSnapshotError()
			return
		}
		spreads := make(map[string]metrics.AssetSpread, len(snap.Positions))
		for _, v := range snap.Positions {
			spreads[v.Position.ID] = metrics.AssetSpread{Asset: v.Return.Asset, Spread: v.Return.CurrentSpread}
		}
		m.ObserveSnapshot(snap.Summary.TotalEquity, snap.Summary.UnrealizedPnL, snap.Degraded(), spreads)
	}
}
