package webcodecs

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrQuotaExceeded is returned synchronously by Submit when the hard
	// queue-depth limit is reached. Nothing is enqueued. The caller must
	// implement backpressure handling instead of discovering an OOM later.
	ErrQuotaExceeded = errors.New("webcodecs: control queue quota exceeded")

	// ErrShutdown settles any flush future that could not complete
	// normally because Close (or a fatal codec error) intervened.
	ErrShutdown = errors.New("webcodecs: shut down before completion")

	// ErrClosed is returned by operations on a closed codec.
	ErrClosed = errors.New("webcodecs: codec is closed")

	// ErrNotConfigured is returned when an operation requires a successful
	// Configure first.
	ErrNotConfigured = errors.New("webcodecs: codec is not configured")

	// ErrTooManyFlushes rejects a Flush when the pending-completion table
	// is at capacity.
	ErrTooManyFlushes = errors.New("webcodecs: too many pending flushes")

	// ErrCodecNotSupported is returned when no backend is registered for
	// the requested codec.
	ErrCodecNotSupported = errors.New("webcodecs: codec not supported")

	// ErrInvalidInput rejects a payload whose shape does not match the
	// configured parameters.
	ErrInvalidInput = errors.New("webcodecs: input does not match configuration")
)

// ConfigurationError reports a failed Configure. It is delivered through
// the error event stream and does not stop the worker; the codec stays
// unconfigured until a subsequent Configure succeeds.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webcodecs: configure: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("webcodecs: configure: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ProcessingError reports a codec failure while handling a single
// message. Non-fatal errors leave the worker running; a fatal error marks
// the codec instance unusable, the queue is drained and the worker stops.
type ProcessingError struct {
	Op    string // "process", "flush", "reset"
	Err   error
	Fatal bool
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("webcodecs: %s: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a fatal ProcessingError.
func IsFatal(err error) bool {
	var pe *ProcessingError
	return errors.As(err, &pe) && pe.Fatal
}
