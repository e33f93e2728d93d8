package container

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"duoleg/internal/application/port"
	"duoleg/internal/application/service"
	"duoleg/internal/domain/model"
	"duoleg/internal/infrastructure/config"
	"duoleg/internal/infrastructure/exchange/gate"
	"duoleg/internal/infrastructure/exchange/mexc"
	"duoleg/internal/infrastructure/storage/postgres"
	"duoleg/internal/infrastructure/storage/redis"
	"duoleg/internal/infrastructure/storage/sqlite"
)

// Container wires venues, storage and services from configuration. Services
// are built lazily and shared.
type Container struct {
	cfg  *config.Config
	repo port.Repository

	spot    port.SpotVenue
	futures port.FuturesVenue
	cache   port.QuoteCache

	symbolService    *service.SymbolService
	metaService      *service.MetaService
	marketData       *service.MarketDataService
	positionService  *service.PositionService
	tradeBook        *service.TradeBook
	tradeService     *service.TradeService
	precheckService  *service.PrecheckService
	reconcileService *service.ReconcileService
}

func New(cfg *config.Config) (*Container, error) {
	c := &Container{cfg: cfg}

	switch cfg.Storage.Driver {
	case "postgres":
		repo, err := postgres.New(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		c.repo = repo
	case "sqlite":
		repo, err := sqlite.New(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		c.repo = repo
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	c.spot = gate.New(cfg.Gate.BaseURL, cfg.Gate.APIKey, cfg.Gate.APISecret, cfg.HTTPTimeout())
	c.futures = mexc.New(cfg.Mexc.BaseURL, cfg.Mexc.ContractBaseURL, cfg.Mexc.WebAuthToken, cfg.Symbol.Supported, cfg.HTTPTimeout())

	if cfg.Redis.Enabled {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		c.cache = redis.NewQuoteCache(rdb, cfg.Redis.Prefix, cfg.RedisTTL())
	}

	return c, nil
}

func (c *Container) Repository() port.Repository {
	return c.repo
}

func (c *Container) SymbolService() *service.SymbolService {
	if c.symbolService == nil {
		c.symbolService = service.NewSymbolService(c.cfg.Symbol.Default, c.cfg.Symbol.Supported)
	}
	return c.symbolService
}

func (c *Container) MetaService() *service.MetaService {
	if c.metaService == nil {
		settings := model.ExecSettings{
			MarginPct: c.cfg.Execution.MarginPct,
			Leverage:  c.cfg.Mexc.Leverage,
		}
		c.metaService = service.NewMetaService(c.spot, c.futures, c.repo, settings)
	}
	return c.metaService
}

func (c *Container) MarketDataService() *service.MarketDataService {
	if c.marketData == nil {
		c.marketData = service.NewMarketDataService(c.spot, c.futures, c.MetaService(), c.cache)
	}
	return c.marketData
}

func (c *Container) PositionService() *service.PositionService {
	if c.positionService == nil {
		c.positionService = service.NewPositionService()
	}
	return c.positionService
}

func (c *Container) TradeBook() *service.TradeBook {
	if c.tradeBook == nil {
		c.tradeBook = service.NewTradeBook(c.repo)
	}
	return c.tradeBook
}

func (c *Container) TradeService() *service.TradeService {
	if c.tradeService == nil {
		c.tradeService = service.NewTradeService(
			c.spot, c.futures,
			c.MarketDataService(), c.MetaService(),
			c.PositionService(), c.TradeBook(),
			c.cfg.Execution.MaxDriftPct,
		)
	}
	return c.tradeService
}

func (c *Container) PrecheckService() *service.PrecheckService {
	if c.precheckService == nil {
		c.precheckService = service.NewPrecheckService(
			c.MarketDataService(), c.MetaService(),
			c.PositionService(), c.TradeService(),
		)
	}
	return c.precheckService
}

func (c *Container) ReconcileService() *service.ReconcileService {
	if c.reconcileService == nil {
		c.reconcileService = service.NewReconcileService(
			c.spot, c.futures,
			c.TradeBook(), c.PositionService(),
			c.cfg.PollInterval(), c.cfg.Reconcile.ManualNotFound,
		)
	}
	return c.reconcileService
}

func (c *Container) Close() error {
	return c.repo.Close()
}
