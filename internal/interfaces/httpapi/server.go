package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/application/service"
	"fundarb/internal/domain/symbol"
	"fundarb/internal/infrastructure/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Deps HTTP 层依赖，Metrics 可为 nil
type Deps struct {
	Accounts  *service.AccountService
	Positions *service.PositionService
	Portfolio *service.PortfolioService
	Prices    *service.PriceService
	Market    port.MarketDataProvider
	Metrics   *metrics.Metrics
	Symbols   []string
}

type Server struct {
	accounts  *service.AccountService
	positions *service.PositionService
	portfolio *service.PortfolioService
	prices    *service.PriceService
	market    port.MarketDataProvider
	metrics   *metrics.Metrics
	symbols   []string
}

func New(d Deps) *Server {
	return &Server{
		accounts:  d.Accounts,
		positions: d.Positions,
		portfolio: d.Portfolio,
		prices:    d.Prices,
		market:    d.Market,
		metrics:   d.Metrics,
		symbols:   symbol.NormalizeList(d.Symbols),
	}
}

// Router 注册全部路由
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/prices", s.getPrices)
		r.Get("/market", s.getMarket)

		r.Route("/accounts/{account}", func(r chi.Router) {
			r.Get("/portfolio", s.getPortfolio)
			r.Post("/deposit", s.deposit)
			r.Post("/reset", s.reset)

			r.Get("/trades", s.listTrades)
			r.Post("/trades", s.placeTrade)
			r.Post("/trades/{id}/close", s.closeTrade)

			r.Get("/positions", s.listPositions)
			r.Post("/positions", s.openPosition)
			r.Post("/positions/{id}/close", s.closePosition)
		})
	})
	return r
}

// accessLog 请求日志 + 指标，走 zerolog 避免打乱终端 live 行
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(r.Method, strconv.Itoa(status))
		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	success(w, map[string]string{"status": "ok"})
}
