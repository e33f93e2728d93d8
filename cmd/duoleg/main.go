package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"duoleg/internal/application/container"
	"duoleg/internal/infrastructure/config"
	"duoleg/internal/infrastructure/logger"
	"duoleg/internal/server"
	"duoleg/internal/server/handler"
	"duoleg/internal/server/ws"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger.Setup(*debug)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("container wiring failed")
	}
	defer c.Close()

	if err := c.MetaService().LoadOverrides(ctx); err != nil {
		log.Fatal().Err(err).Msg("load meta overrides failed")
	}
	if err := c.TradeBook().Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("load trade history failed")
	}

	go c.ReconcileService().Run(ctx)

	hub := ws.NewHub(func(ctx context.Context) (any, error) {
		return c.MarketDataService().Data(ctx, c.SymbolService().Current())
	}, cfg.PollInterval())
	go hub.Run(ctx)

	srv := server.New(cfg.Server.Port, server.Handlers{
		Health:   handler.NewHealthHandler(),
		Symbol:   handler.NewSymbolHandler(c.SymbolService()),
		Market:   handler.NewMarketHandler(c.MarketDataService(), c.MetaService(), c.SymbolService()),
		Position: handler.NewPositionHandler(c.PositionService()),
		Trade: handler.NewTradeHandler(
			c.TradeService(), c.PrecheckService(),
			c.ReconcileService(), c.TradeBook(), c.SymbolService(),
		),
	}, hub)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	log.Info().
		Str("config", *configPath).
		Str("symbol", cfg.Symbol.Default).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Msg("duoleg started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

// loadConfig falls back to built-in defaults when the file is absent, which
// keeps a bare binary useful for local runs against public endpoints.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warn().Str("config", path).Msg("config file missing, using defaults")
		return config.Default(), nil
	}
	return config.Load(path)
}
