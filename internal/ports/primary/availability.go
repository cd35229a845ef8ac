package primary

import "context"

// AvailabilityService defines the primary port for studio capacity.
type AvailabilityService interface {
	// SetAvailability creates or replaces the capacity override for a date.
	SetAvailability(ctx context.Context, req SetAvailabilityRequest) (*Availability, error)

	// ClearAvailability removes a date's override so the weekly template applies.
	ClearAvailability(ctx context.Context, date string) error

	// ListAvailability lists the effective capacity for every date in [from, to].
	ListAvailability(ctx context.Context, from, to string) ([]*Availability, error)

	// CapacityFor returns the effective capacity of one date.
	CapacityFor(ctx context.Context, date string) (*Availability, error)
}

// SetAvailabilityRequest contains parameters for a capacity override.
type SetAvailabilityRequest struct {
	Date  string
	Hours float64
	Notes string
}

// Availability is the effective capacity of a date.
type Availability struct {
	Date       string
	Hours      float64
	Notes      string
	Overridden bool
}
