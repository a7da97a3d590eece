package payload

import "context"

// Processor is the component under test. It mutates p in place and returns
// the attachments it derived, in order.
type Processor interface {
	Process(ctx context.Context, p *Payload) ([]*Payload, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, p *Payload) ([]*Payload, error)

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, p *Payload) ([]*Payload, error) {
	return f(ctx, p)
}
