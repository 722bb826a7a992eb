package processor

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-ratings/internal/pubsub"
	"github.com/mauv0809/pickup-ratings/internal/rating"
)

// New creates a new Processor. pubsub may be nil when no Pub/Sub project is
// configured; push payloads are then decoded directly.
func New(notifier Notifier, pubsub pubsub.PubSubClient) *Processor {
	return &Processor{
		pubsub:   pubsub,
		notifier: notifier,
	}
}

// HandleRatingsUpdated decodes a ratings-updated payload and announces it.
func (p *Processor) HandleRatingsUpdated(data []byte, dryRun bool) (*rating.Result, error) {
	var result rating.Result
	if err := p.decode(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if result.MatchID == 0 || len(result.Teams) == 0 {
		log.Warn("Discarding ratings-updated message without match", "matchID", result.MatchID, "teams", len(result.Teams))
		return nil, ErrInvalidMessage
	}

	log.Info("Processing ratings-updated event", "tenantID", result.TenantID, "matchID", result.MatchID, "operation", result.Operation, "kind", result.Kind)
	if err := p.notifier.SendRatingResult(&result, dryRun); err != nil {
		log.Error("Failed to send rating result", "error", err, "matchID", result.MatchID)
		return &result, err
	}
	return &result, nil
}

func (p *Processor) decode(data []byte, result *rating.Result) error {
	if p.pubsub == nil {
		return pubsub.Decode(data, result)
	}
	return p.pubsub.ProcessMessage(data, result)
}
