package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncRatingsCommitted(operation string)
	IncRatingsRejected(reason string)
	ObserveCascadeDepth(depth int)
	ObserveRatingDuration(duration float64)
	IncEventsPublished()
	IncEventsFailed()
	IncSlackNotifSent()
	IncSlackNotifFailed()
	SetStartupTime(duration float64)
}
