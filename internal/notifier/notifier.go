package notifier

import "github.com/mauv0809/pickup-ratings/internal/rating"

// Notifier defines a high-level interface for announcing rating changes.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	SendRatingResult(result *rating.Result, dryRun bool) error
	// FormatRatingResult renders the result without sending it.
	FormatRatingResult(result *rating.Result) (any, error)
}
