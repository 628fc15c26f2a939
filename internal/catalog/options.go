package catalog

import (
	"time"

	"github.com/five82/jobdeck/internal/logging"
	"github.com/five82/jobdeck/internal/portal"
	"github.com/five82/jobdeck/internal/state"
)

// Options tune the entity stores. Zero values use the state defaults.
type Options struct {
	TTL    time.Duration
	Clock  state.Clock
	Logger logging.Logger
}

// failureFields tags a failed list fetch for the store's warning log.
func failureFields(err error) logging.Fields {
	return logging.Fields{
		"retryable":    portal.IsRetryable(err),
		"unauthorized": portal.IsUnauthorized(err),
	}
}
