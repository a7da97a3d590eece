package golden

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"goldcheck/internal/logging"
	"goldcheck/internal/payload"
)

// PanicError reports a processor that panicked instead of returning.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("processor panic: %v", e.Value)
}

// Invoke runs proc over p. When loggerName is set, everything logged through
// logging.Named(loggerName) during the call is captured and returned; the
// capture is released even when proc panics. Panics become *PanicError.
func Invoke(ctx context.Context, proc payload.Processor, p *payload.Payload, loggerName string) ([]*payload.Payload, []logging.Event, error) {
	if proc == nil {
		return nil, nil, errors.New("no processor configured")
	}

	var children []*payload.Payload
	call := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		children, err = proc.Process(ctx, p)
		return err
	}

	if loggerName == "" {
		err := call()
		return children, nil, err
	}
	events, err := logging.WithCapture(loggerName, call)
	return children, events, err
}
