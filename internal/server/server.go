package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"duoleg/internal/server/handler"
	"duoleg/internal/server/middleware"
	"duoleg/internal/server/ws"
)

// Handlers aggregates everything the router registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Symbol   *handler.SymbolHandler
	Market   *handler.MarketHandler
	Position *handler.PositionHandler
	Trade    *handler.TradeHandler
}

// Server is the HTTP and WebSocket API surface.
type Server struct {
	httpServer *http.Server
}

func New(port int, handlers Handlers, hub *ws.Hub) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/symbol", handlers.Symbol.Get)
	mux.HandleFunc("POST /api/symbol", handlers.Symbol.Set)

	mux.HandleFunc("GET /api/data", handlers.Market.Data)
	mux.HandleFunc("GET /api/balances", handlers.Market.Balances)
	mux.HandleFunc("GET /api/market-meta", handlers.Market.Meta)
	mux.HandleFunc("POST /api/market-meta-override", handlers.Market.SetMetaOverride)

	mux.HandleFunc("POST /api/position-target", handlers.Position.SetTarget)
	mux.HandleFunc("GET /api/position-progress", handlers.Position.Progress)

	mux.HandleFunc("POST /api/precheck", handlers.Trade.Precheck)
	mux.HandleFunc("POST /api/execute-trade", handlers.Trade.Execute)
	mux.HandleFunc("POST /api/cancel-order", handlers.Trade.Cancel)
	mux.HandleFunc("GET /api/history", handlers.Trade.History)

	mux.Handle("GET /metrics", promhttp.Handler())

	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      middleware.Logging(mux),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
