package webcodecs

import (
	"bytes"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindAudioEncoder, "AudioEncoder"},
		{KindAudioDecoder, "AudioDecoder"},
		{KindVideoEncoder, "VideoEncoder"},
		{KindVideoDecoder, "VideoDecoder"},
		{KindUnknown, "Unknown"},
		{Kind(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestCodecStateString(t *testing.T) {
	tests := []struct {
		state CodecState
		want  string
	}{
		{StateUnconfigured, "unconfigured"},
		{StateConfigured, "configured"},
		{StateClosed, "closed"},
		{CodecState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("CodecState(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestPixelFormatFrameSize(t *testing.T) {
	tests := []struct {
		format PixelFormat
		w, h   int
		want   int
	}{
		{PixelFormatI420, 640, 480, 460800},
		{PixelFormatNV12, 640, 480, 460800},
		{PixelFormatRGBA32, 640, 480, 1228800},
		{PixelFormatUnknown, 640, 480, 0},
	}
	for _, tt := range tests {
		if got := tt.format.FrameSize(tt.w, tt.h); got != tt.want {
			t.Errorf("%v.FrameSize(%d, %d) = %d, want %d", tt.format, tt.w, tt.h, got, tt.want)
		}
	}
}

func TestAudioEncoderConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AudioEncoderConfig)
		ok     bool
	}{
		{"default", func(*AudioEncoderConfig) {}, true},
		{"mono", func(c *AudioEncoderConfig) { c.Channels = 1 }, true},
		{"empty codec", func(c *AudioEncoderConfig) { c.Codec = "" }, false},
		{"zero sample rate", func(c *AudioEncoderConfig) { c.SampleRate = 0 }, false},
		{"zero channels", func(c *AudioEncoderConfig) { c.Channels = 0 }, false},
		{"too many channels", func(c *AudioEncoderConfig) { c.Channels = 6 }, false},
		{"negative bitrate", func(c *AudioEncoderConfig) { c.BitrateBps = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAudioEncoderConfig("opus")
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestVideoEncoderConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*VideoEncoderConfig)
		ok     bool
	}{
		{"default", func(*VideoEncoderConfig) {}, true},
		{"empty codec", func(c *VideoEncoderConfig) { c.Codec = "" }, false},
		{"zero width", func(c *VideoEncoderConfig) { c.Width = 0 }, false},
		{"negative height", func(c *VideoEncoderConfig) { c.Height = -1 }, false},
		{"negative bitrate", func(c *VideoEncoderConfig) { c.BitrateBps = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultVideoEncoderConfig("vp8", 320, 240)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestSampleClone(t *testing.T) {
	pool := NewBufferPool(DefaultPoolSize)
	buf := pool.Acquire(4)
	copy(buf.Bytes(), []byte{1, 2, 3, 4})

	s := &Sample{
		Data:      buf.Bytes(),
		Timestamp: 20000,
		Marker:    7,
		Key:       true,
		buf:       buf,
	}
	c := s.Clone()

	// The clone must not share the pooled backing array.
	s.release()
	next := pool.Acquire(4)
	copy(next.Bytes(), []byte{9, 9, 9, 9})

	if !bytes.Equal(c.Data, []byte{1, 2, 3, 4}) {
		t.Errorf("clone data = %v, want original payload", c.Data)
	}
	if c.Timestamp != 20000 || c.Marker != 7 || !c.Key {
		t.Errorf("clone metadata = %+v, want copied fields", c)
	}
	if c.buf != nil {
		t.Error("clone must not reference the pooled buffer")
	}
	next.Release()
}
