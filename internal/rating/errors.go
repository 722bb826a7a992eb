package rating

import (
	"errors"

	"github.com/mauv0809/pickup-ratings/internal/pickup"
)

var (
	// ErrCascadeLimitExceeded is returned when more rated matches follow the
	// target than may be recomputed in one operation.
	ErrCascadeLimitExceeded = errors.New("cascade limit exceeded")
	ErrInvalidState         = errors.New("invalid state")
	ErrMatchNotFound        = pickup.ErrMatchNotFound
	ErrPersistenceFailure   = errors.New("persistence failure")
)
