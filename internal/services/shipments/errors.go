package shipments

import "github.com/pkg/errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateActive   = errors.New("tracking number already exists in your list")
	ErrDuplicateTrashed  = errors.New("tracking number is in the trash, restore it instead")
	ErrUnknownCarrier    = errors.New("unknown carrier")
	ErrNotFound          = errors.New("shipment not found")
	ErrInvalidTransition = errors.New("invalid shipment transition")
)

func invalid(msg string) error {
	return errors.WithMessage(ErrInvalidInput, msg)
}
