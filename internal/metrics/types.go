package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
type Service struct {
	RatingsCommitted   *prometheus.CounterVec
	RatingsRejected    *prometheus.CounterVec
	CascadeDepth       prometheus.Histogram
	RatingDuration     prometheus.Histogram
	EventsPublished    prometheus.Counter
	EventsFailed       prometheus.Counter
	SlackNotifSent     prometheus.Counter
	SlackNotifFailed   prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}
