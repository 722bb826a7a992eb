package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		RatingsCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickup_ratings_committed_total",
			Help: "The total number of rating batches committed, by operation.",
		}, []string{"operation"}),
		RatingsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickup_ratings_rejected_total",
			Help: "The total number of rate or unrate requests that were refused, by reason.",
		}, []string{"reason"}),
		CascadeDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pickup_rating_cascade_depth",
			Help:    "The number of matches recomputed by a single rate or unrate.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 11},
		}),
		RatingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pickup_rating_duration_seconds",
			Help:    "The duration of a rate or unrate including the commit.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pickup_events_published_total",
			Help: "The total number of ratings-updated events published.",
		}),
		EventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pickup_events_failed_total",
			Help: "The total number of ratings-updated events that failed to publish.",
		}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pickup_slack_notifications_sent_total",
			Help: "The total number of Slack notifications successfully sent.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pickup_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pickup_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.RatingsCommitted,
		s.RatingsRejected,
		s.CascadeDepth,
		s.RatingDuration,
		s.EventsPublished,
		s.EventsFailed,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncRatingsCommitted(operation string) {
	s.RatingsCommitted.WithLabelValues(operation).Inc()
}

func (s *Service) IncRatingsRejected(reason string) {
	s.RatingsRejected.WithLabelValues(reason).Inc()
}

func (s *Service) ObserveCascadeDepth(depth int) {
	s.CascadeDepth.Observe(float64(depth))
}

func (s *Service) ObserveRatingDuration(duration float64) {
	s.RatingDuration.Observe(duration)
}

func (s *Service) IncEventsPublished() {
	s.EventsPublished.Inc()
}

func (s *Service) IncEventsFailed() {
	s.EventsFailed.Inc()
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
