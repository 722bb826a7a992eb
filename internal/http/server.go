package http

import (
	"net/http"

	"github.com/mauv0809/pickup-ratings/internal/config"
	"github.com/mauv0809/pickup-ratings/internal/metrics"
	"github.com/mauv0809/pickup-ratings/internal/pickup"
	"github.com/mauv0809/pickup-ratings/internal/processor"
	"github.com/mauv0809/pickup-ratings/internal/rating"
)

func NewServer(store pickup.Store, ratings *rating.Service, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config, processor *processor.Processor) *Server {
	server := &Server{
		Store:          store,
		Ratings:        ratings,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Processor:      processor,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, authMiddleware)
	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware))
	s.Router.Handle("/ratings/rate", Chain(s.RateHandler(), paramsMiddleware, allowMethods(http.MethodPost)))
	s.Router.Handle("/ratings/unrate", Chain(s.UnrateHandler(), paramsMiddleware, allowMethods(http.MethodPost)))
	s.Router.Handle("/skills", Chain(s.SkillsHandler(), paramsMiddleware, allowMethods(http.MethodGet)))
	s.Router.Handle("/reports", Chain(s.ReportsHandler(), paramsMiddleware, allowMethods(http.MethodGet, http.MethodPost)))
	s.Router.Handle("/pubsub/ratings-updated", Chain(s.RatingsUpdatedHandler(), paramsMiddleware, allowMethods(http.MethodPost)))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
