package webcodecs

import "sync"

// Callbacks carries the event subscriptions for a codec front end.
// OnOutput and OnError run on the delivery goroutine, in order.
type Callbacks struct {
	// OnOutput receives each produced sample; it is only valid for the
	// duration of the callback (use Sample.Clone to retain it).
	OnOutput func(*Sample)
	// OnError receives per-message codec errors.
	OnError func(error)
	// OnSaturationChanged advises the caller to slow down (true) or that
	// submitting is cheap again (false). Rising edges fire on the
	// goroutine submitting work, falling edges on the delivery goroutine.
	OnSaturationChanged func(bool)
}

// VideoEncodeOptions modifies a single video Encode call.
type VideoEncodeOptions struct {
	// KeyFrame forces the encoder to emit a sync sample for this frame.
	KeyFrame bool
}

// frontend is the shared validation layer of the four public codec
// types: it enforces the unconfigured → configured → closed state
// machine and translates configs into control messages. The engine
// underneath stays generic over codec kind.
type frontend struct {
	kind Kind
	cb   Callbacks
	opts EngineOptions

	mu    sync.Mutex
	state CodecState
	codec string
	eng   *Engine
}

func (f *frontend) configure(params CodecParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateClosed {
		return ErrClosed
	}
	if f.eng != nil && f.codec != params.CodecString() {
		// Switching codecs needs a different backend, and the engine owns
		// the current one. Tear it down and rebuild; if the rebuild fails
		// below the codec is left unconfigured, never on the old backend.
		f.eng.Close()
		f.eng = nil
		f.state = StateUnconfigured
	}
	if f.eng == nil {
		backend, err := NewBackend(f.kind, params.CodecString())
		if err != nil {
			return err
		}
		opts := f.opts
		opts.Backend = backend
		opts.OnOutput = f.cb.OnOutput
		opts.OnError = f.cb.OnError
		opts.OnSaturationChanged = f.cb.OnSaturationChanged
		eng, err := NewEngine(opts)
		if err != nil {
			return err
		}
		f.eng = eng
		f.codec = params.CodecString()
	}
	if err := f.eng.Submit(NewConfigureMessage(params)); err != nil {
		return err
	}
	f.state = StateConfigured
	return nil
}

func (f *frontend) process(in *Sample, forceKey bool) error {
	f.mu.Lock()
	state, eng := f.state, f.eng
	f.mu.Unlock()
	switch state {
	case StateClosed:
		return ErrClosed
	case StateUnconfigured:
		return ErrNotConfigured
	}
	return eng.Submit(NewProcessMessage(in, forceKey))
}

func (f *frontend) flush() *FlushFuture {
	f.mu.Lock()
	state, eng := f.state, f.eng
	f.mu.Unlock()
	fut := newFlushFuture()
	switch state {
	case StateClosed:
		fut.settle(ErrClosed)
		return fut
	case StateUnconfigured:
		fut.settle(ErrNotConfigured)
		return fut
	}
	return eng.Flush()
}

// reset returns the codec to the unconfigured state and discards queued
// work. A reset on a closed codec is a no-op, matching the WebCodecs
// model where reset never throws after close.
func (f *frontend) reset() error {
	f.mu.Lock()
	eng := f.eng
	if f.state == StateClosed || eng == nil {
		f.mu.Unlock()
		return nil
	}
	f.state = StateUnconfigured
	f.mu.Unlock()
	return eng.Reset()
}

func (f *frontend) close() error {
	f.mu.Lock()
	if f.state == StateClosed {
		f.mu.Unlock()
		return nil
	}
	f.state = StateClosed
	eng := f.eng
	f.mu.Unlock()
	if eng == nil {
		return nil
	}
	return eng.Close()
}

func (f *frontend) codecState() CodecState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *frontend) queueDepth() int {
	f.mu.Lock()
	eng := f.eng
	f.mu.Unlock()
	if eng == nil {
		return 0
	}
	return eng.QueueDepth()
}

// AudioEncoder encodes raw PCM samples into compressed chunks without
// ever blocking the caller.
type AudioEncoder struct{ f frontend }

// NewAudioEncoder creates an audio encoder delivering results through cb.
func NewAudioEncoder(cb Callbacks) *AudioEncoder {
	return &AudioEncoder{f: frontend{kind: KindAudioEncoder, cb: cb}}
}

// Configure applies the configuration. The first successful Configure
// starts the worker and allocates the codec resource.
func (e *AudioEncoder) Configure(cfg AudioEncoderConfig) error { return e.f.configure(cfg) }

// Encode submits one PCM sample buffer. Ownership of the sample
// transfers to the encoder.
func (e *AudioEncoder) Encode(in *Sample) error { return e.f.process(in, false) }

// Flush returns a future that resolves once every output for previously
// submitted samples has been delivered.
func (e *AudioEncoder) Flush() *FlushFuture { return e.f.flush() }

// Reset discards queued work and returns to the unconfigured state.
func (e *AudioEncoder) Reset() error { return e.f.reset() }

// Close releases the codec. Idempotent.
func (e *AudioEncoder) Close() error { return e.f.close() }

// State returns the public codec state.
func (e *AudioEncoder) State() CodecState { return e.f.codecState() }

// QueueDepth returns the number of samples accepted but not yet encoded.
func (e *AudioEncoder) QueueDepth() int { return e.f.queueDepth() }

// AudioDecoder decodes compressed chunks into raw PCM samples.
type AudioDecoder struct{ f frontend }

// NewAudioDecoder creates an audio decoder delivering results through cb.
func NewAudioDecoder(cb Callbacks) *AudioDecoder {
	return &AudioDecoder{f: frontend{kind: KindAudioDecoder, cb: cb}}
}

func (d *AudioDecoder) Configure(cfg AudioDecoderConfig) error { return d.f.configure(cfg) }

// Decode submits one encoded chunk.
func (d *AudioDecoder) Decode(in *Sample) error { return d.f.process(in, false) }

func (d *AudioDecoder) Flush() *FlushFuture { return d.f.flush() }
func (d *AudioDecoder) Reset() error        { return d.f.reset() }
func (d *AudioDecoder) Close() error        { return d.f.close() }
func (d *AudioDecoder) State() CodecState   { return d.f.codecState() }
func (d *AudioDecoder) QueueDepth() int     { return d.f.queueDepth() }

// VideoEncoder encodes raw frames into compressed chunks.
type VideoEncoder struct{ f frontend }

// NewVideoEncoder creates a video encoder delivering results through cb.
func NewVideoEncoder(cb Callbacks) *VideoEncoder {
	return &VideoEncoder{f: frontend{kind: KindVideoEncoder, cb: cb}}
}

func (e *VideoEncoder) Configure(cfg VideoEncoderConfig) error { return e.f.configure(cfg) }

// Encode submits one raw frame. opts may be nil.
func (e *VideoEncoder) Encode(in *Sample, opts *VideoEncodeOptions) error {
	return e.f.process(in, opts != nil && opts.KeyFrame)
}

func (e *VideoEncoder) Flush() *FlushFuture { return e.f.flush() }
func (e *VideoEncoder) Reset() error        { return e.f.reset() }
func (e *VideoEncoder) Close() error        { return e.f.close() }
func (e *VideoEncoder) State() CodecState   { return e.f.codecState() }
func (e *VideoEncoder) QueueDepth() int     { return e.f.queueDepth() }

// VideoDecoder decodes compressed chunks into raw frames.
type VideoDecoder struct{ f frontend }

// NewVideoDecoder creates a video decoder delivering results through cb.
func NewVideoDecoder(cb Callbacks) *VideoDecoder {
	return &VideoDecoder{f: frontend{kind: KindVideoDecoder, cb: cb}}
}

func (d *VideoDecoder) Configure(cfg VideoDecoderConfig) error { return d.f.configure(cfg) }

// Decode submits one encoded chunk.
func (d *VideoDecoder) Decode(in *Sample) error { return d.f.process(in, false) }

func (d *VideoDecoder) Flush() *FlushFuture { return d.f.flush() }
func (d *VideoDecoder) Reset() error        { return d.f.reset() }
func (d *VideoDecoder) Close() error        { return d.f.close() }
func (d *VideoDecoder) State() CodecState   { return d.f.codecState() }
func (d *VideoDecoder) QueueDepth() int     { return d.f.queueDepth() }
