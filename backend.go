package webcodecs

import "fmt"

// CodecBackend is the narrow capability set the engine consumes from a
// codec implementation. Implementations are stateful and blocking; the
// engine guarantees that all methods are invoked from the single worker
// goroutine that owns the backend, so implementations need no internal
// locking for the codec resource itself.
//
// Samples returned by DrainOutputs and Flush may point at scratch memory
// owned by the backend; they are only valid until the next call into the
// backend. The worker copies them into pooled buffers before delivery.
type CodecBackend interface {
	// Configure (re)initializes the codec with validated parameters. A
	// failed Configure must leave the backend in a well-defined
	// unconfigured state, never half-initialized.
	Configure(params CodecParams) error

	// SubmitInput feeds one payload into the codec. forceKeyframe asks an
	// encoder to emit a sync sample for this input; decoders ignore it.
	SubmitInput(in *Sample, forceKeyframe bool) error

	// DrainOutputs returns every output the codec has ready, in
	// production order. May return nil while the codec is buffering.
	DrainOutputs() []*Sample

	// Flush drains internal codec history (e.g. reordering buffers) and
	// returns any trailing outputs in order.
	Flush() ([]*Sample, error)

	// Reset drops all encode/decode history, semantically equivalent to
	// destroying and immediately recreating the codec with the current
	// configuration.
	Reset() error

	// Close releases the underlying codec resource. Called exactly once.
	Close()
}

// resourceHandle wraps a CodecBackend with the ownership discipline the
// worker relies on: it tracks the configured flag, converts raw backend
// errors into the package taxonomy, and guarantees the underlying
// resource is released exactly once even when Configure failed midway.
//
// The handle is touched only by the worker goroutine; the engine façade
// never accesses it.
type resourceHandle struct {
	backend    CodecBackend
	configured bool
	released   bool
}

func newResourceHandle(backend CodecBackend) *resourceHandle {
	return &resourceHandle{backend: backend}
}

// Configure applies params. On failure the handle reverts to the
// unconfigured state and the caller must re-Configure before Process.
func (h *resourceHandle) Configure(params CodecParams) error {
	if h.released {
		return ErrClosed
	}
	if err := h.backend.Configure(params); err != nil {
		h.configured = false
		if _, ok := err.(*ConfigurationError); ok {
			return err
		}
		return &ConfigurationError{Reason: fmt.Sprintf("%s backend", params.CodecString()), Err: err}
	}
	h.configured = true
	return nil
}

// Process feeds one input and collects whatever outputs it produced, in
// production order.
func (h *resourceHandle) Process(in *Sample, forceKeyframe bool) ([]*Sample, error) {
	if h.released {
		return nil, ErrClosed
	}
	if !h.configured {
		return nil, ErrNotConfigured
	}
	if err := h.backend.SubmitInput(in, forceKeyframe); err != nil {
		return nil, err
	}
	return h.backend.DrainOutputs(), nil
}

// Flush drains codec history. On an unconfigured handle there is nothing
// buffered, so it is a successful no-op.
func (h *resourceHandle) Flush() ([]*Sample, error) {
	if h.released || !h.configured {
		return nil, nil
	}
	return h.backend.Flush()
}

// Reset reinitializes the codec in place, discarding history.
func (h *resourceHandle) Reset() error {
	if h.released || !h.configured {
		return nil
	}
	return h.backend.Reset()
}

// Close releases the native resource. Idempotent; only the first call
// reaches the backend.
func (h *resourceHandle) Close() {
	if h.released {
		return
	}
	h.released = true
	h.configured = false
	h.backend.Close()
}
