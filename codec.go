package webcodecs

import "fmt"

// Kind identifies one of the four codec kinds the engine can drive.
type Kind int

const (
	KindUnknown Kind = iota
	KindAudioEncoder
	KindAudioDecoder
	KindVideoEncoder
	KindVideoDecoder
)

func (k Kind) String() string {
	switch k {
	case KindAudioEncoder:
		return "AudioEncoder"
	case KindAudioDecoder:
		return "AudioDecoder"
	case KindVideoEncoder:
		return "VideoEncoder"
	case KindVideoDecoder:
		return "VideoDecoder"
	default:
		return "Unknown"
	}
}

// CodecState is the public state machine enforced by the front ends.
type CodecState int

const (
	StateUnconfigured CodecState = iota // Created or reset, awaiting Configure
	StateConfigured                     // Configure succeeded, accepting work
	StateClosed                         // Closed, terminal
)

func (s CodecState) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CodecParams is the validated configuration carried by a Configure
// control message. The concrete type is one of the four config structs
// below; backends type-assert to the one they expect.
type CodecParams interface {
	// CodecKind returns the codec kind this configuration targets.
	CodecKind() Kind
	// CodecString returns the registry codec identifier, e.g. "opus".
	CodecString() string
	// Validate checks the configuration synchronously, before anything
	// is enqueued.
	Validate() error
}

// AudioEncoderConfig configures an audio encoder.
type AudioEncoderConfig struct {
	Codec      string // Registry codec string, e.g. "opus"
	SampleRate int    // Sample rate in Hz (e.g. 48000)
	Channels   int    // 1 or 2
	BitrateBps int    // Target bitrate in bits per second (0 = codec default)

	// Opus-specific options
	Complexity int  // 0-10 (0 = codec default)
	DTX        bool // Discontinuous transmission
	FEC        bool // In-band forward error correction
}

// DefaultAudioEncoderConfig returns a default audio encoder configuration.
func DefaultAudioEncoderConfig(codec string) AudioEncoderConfig {
	return AudioEncoderConfig{
		Codec:      codec,
		SampleRate: 48000,
		Channels:   2,
		BitrateBps: 64000,
	}
}

func (c AudioEncoderConfig) CodecKind() Kind     { return KindAudioEncoder }
func (c AudioEncoderConfig) CodecString() string { return c.Codec }

func (c AudioEncoderConfig) Validate() error {
	if c.Codec == "" {
		return &ConfigurationError{Reason: "codec string is required"}
	}
	if c.SampleRate <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid sample rate %d", c.SampleRate)}
	}
	if c.Channels < 1 || c.Channels > 2 {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid channel count %d", c.Channels)}
	}
	if c.BitrateBps < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid bitrate %d", c.BitrateBps)}
	}
	return nil
}

// AudioDecoderConfig configures an audio decoder.
type AudioDecoderConfig struct {
	Codec      string
	SampleRate int
	Channels   int
}

// DefaultAudioDecoderConfig returns a default audio decoder configuration.
func DefaultAudioDecoderConfig(codec string) AudioDecoderConfig {
	return AudioDecoderConfig{Codec: codec, SampleRate: 48000, Channels: 2}
}

func (c AudioDecoderConfig) CodecKind() Kind     { return KindAudioDecoder }
func (c AudioDecoderConfig) CodecString() string { return c.Codec }

func (c AudioDecoderConfig) Validate() error {
	if c.Codec == "" {
		return &ConfigurationError{Reason: "codec string is required"}
	}
	if c.SampleRate <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid sample rate %d", c.SampleRate)}
	}
	if c.Channels < 1 || c.Channels > 2 {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid channel count %d", c.Channels)}
	}
	return nil
}

// VideoEncoderConfig configures a video encoder.
type VideoEncoderConfig struct {
	Codec      string      // Registry codec string, e.g. "vp8"
	Width      int         // Frame width in pixels
	Height     int         // Frame height in pixels
	Format     PixelFormat // Expected input pixel format
	FPS        int         // Target framerate (0 = 30)
	BitrateBps int         // Target bitrate in bits per second
	Threads    int         // Encoder threads (0 = auto)
}

// DefaultVideoEncoderConfig returns a default video encoder configuration.
func DefaultVideoEncoderConfig(codec string, width, height int) VideoEncoderConfig {
	return VideoEncoderConfig{
		Codec:      codec,
		Width:      width,
		Height:     height,
		Format:     PixelFormatI420,
		FPS:        30,
		BitrateBps: 1_500_000,
	}
}

func (c VideoEncoderConfig) CodecKind() Kind     { return KindVideoEncoder }
func (c VideoEncoderConfig) CodecString() string { return c.Codec }

func (c VideoEncoderConfig) Validate() error {
	if c.Codec == "" {
		return &ConfigurationError{Reason: "codec string is required"}
	}
	if c.Width <= 0 || c.Height <= 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid dimensions %dx%d", c.Width, c.Height)}
	}
	if c.BitrateBps < 0 {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid bitrate %d", c.BitrateBps)}
	}
	return nil
}

// VideoDecoderConfig configures a video decoder.
type VideoDecoderConfig struct {
	Codec   string
	Threads int // Decoder threads (0 = auto)
}

// DefaultVideoDecoderConfig returns a default video decoder configuration.
func DefaultVideoDecoderConfig(codec string) VideoDecoderConfig {
	return VideoDecoderConfig{Codec: codec}
}

func (c VideoDecoderConfig) CodecKind() Kind     { return KindVideoDecoder }
func (c VideoDecoderConfig) CodecString() string { return c.Codec }

func (c VideoDecoderConfig) Validate() error {
	if c.Codec == "" {
		return &ConfigurationError{Reason: "codec string is required"}
	}
	return nil
}
