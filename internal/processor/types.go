package processor

import (
	"errors"

	"github.com/mauv0809/pickup-ratings/internal/pubsub"
)

// ErrInvalidMessage is returned for push messages that do not carry a usable result.
var ErrInvalidMessage = errors.New("invalid ratings-updated message")

// Processor turns ratings-updated events into notifications.
type Processor struct {
	pubsub   pubsub.PubSubClient
	notifier Notifier
}
