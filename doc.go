// Package webcodecs bridges non-blocking callers to stateful, blocking
// media codecs.
//
// A caller that must never block (an event loop, a network goroutine)
// submits control messages to an Engine. The Engine owns a dedicated
// worker goroutine that exclusively holds the underlying codec resource,
// drains the control queue in strict FIFO order, and hands results back
// through a callback bridge that guarantees no delivery ever fires after
// the Engine has been closed.
//
// The package provides:
//
//   - Engine: the core façade (submit, flush, reset, close, backpressure)
//   - CodecBackend: the narrow interface a codec implementation satisfies
//   - AudioEncoder, AudioDecoder, VideoEncoder, VideoDecoder: WebCodecs-style
//     front ends that enforce the public state machine on top of an Engine
//   - a libopus backend loaded dynamically via purego (no cgo required)
//   - RTP packetizers and a WebRTC track writer for encoded output
//
// Backpressure is two-staged: a soft limit raises a saturation event that
// advises the caller to slow down, and a hard limit makes Submit fail
// synchronously with ErrQuotaExceeded so memory stays bounded even when
// the caller ignores the advisory signal.
package webcodecs
