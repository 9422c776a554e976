package audit

import (
	"context"
)

// Sink receives every published event.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a sink that can be queried back.
type Store interface {
	Sink
	ListByDevice(ctx context.Context, deviceID string) ([]Event, error)
}
