package webcodecs

import (
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// TrackWriter forwards encoded output samples to a pion WebRTC track.
// Its Write method copies synchronously, so it is safe to use directly
// as an Engine output callback even though delivered samples do not
// outlive the callback.
type TrackWriter struct {
	track *webrtc.TrackLocalStaticSample
}

// NewTrackWriter creates a local track for the given codec string and a
// writer that feeds it. Supported codec strings: "opus", "vp8".
func NewTrackWriter(codec, trackID, streamID string) (*TrackWriter, error) {
	var capability webrtc.RTPCodecCapability
	switch codec {
	case "opus":
		capability = webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: opusClockRate,
			Channels:  2,
		}
	case "vp8":
		capability = webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeVP8,
			ClockRate: videoClockRate,
		}
	default:
		return nil, fmt.Errorf("%w: no track mapping for %q", ErrCodecNotSupported, codec)
	}

	track, err := webrtc.NewTrackLocalStaticSample(capability, trackID, streamID)
	if err != nil {
		return nil, fmt.Errorf("create track: %w", err)
	}
	return &TrackWriter{track: track}, nil
}

// Track returns the underlying pion track, ready to be added to a
// PeerConnection.
func (w *TrackWriter) Track() *webrtc.TrackLocalStaticSample { return w.track }

// Write sends one encoded chunk to the track.
func (w *TrackWriter) Write(chunk *Sample) error {
	return w.track.WriteSample(media.Sample{
		Data:     chunk.Data,
		Duration: time.Duration(chunk.Duration) * time.Microsecond,
	})
}

// Output adapts the writer into an Engine/frontend output callback.
// Write errors are passed to onError when it is non-nil.
func (w *TrackWriter) Output(onError func(error)) func(*Sample) {
	return func(s *Sample) {
		if err := w.Write(s); err != nil && onError != nil {
			onError(fmt.Errorf("track write: %w", err))
		}
	}
}
