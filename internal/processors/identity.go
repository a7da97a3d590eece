package processors

import (
	"context"

	"goldcheck/internal/payload"
)

// Identity leaves the payload untouched.
type Identity struct{}

// Process implements payload.Processor.
func (Identity) Process(context.Context, *payload.Payload) ([]*payload.Payload, error) {
	return nil, nil
}
