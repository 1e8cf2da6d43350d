package carrier

import (
	"context"

	"github.com/BearBump/ShipTrack/internal/models"
)

// Client looks up the current status of a tracking number at a carrier.
type Client interface {
	FetchStatus(ctx context.Context, trackingNumber, carrierCode string) (models.StatusUpdate, error)
}

// LookupError is returned when a status cannot be obtained. Message is safe to show to users.
type LookupError struct {
	Message string
	Err     error
}

func (e *LookupError) Error() string {
	return e.Message
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

func NewLookupError(msg string, err error) *LookupError {
	return &LookupError{Message: msg, Err: err}
}
