// Core payload types crossing the engine boundary.
package webcodecs

// PixelFormat represents raw video pixel formats.
type PixelFormat int

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatI420                // YUV 4:2:0 planar (Y + U + V)
	PixelFormatNV12                // YUV 4:2:0 semi-planar (Y + interleaved UV)
	PixelFormatRGBA32              // Packed RGBA, 4 bytes per pixel
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatI420:
		return "I420"
	case PixelFormatNV12:
		return "NV12"
	case PixelFormatRGBA32:
		return "RGBA32"
	default:
		return "Unknown"
	}
}

// FrameSize returns the number of bytes one frame occupies at the given
// dimensions, or 0 for an unknown format.
func (p PixelFormat) FrameSize(width, height int) int {
	switch p {
	case PixelFormatI420, PixelFormatNV12:
		return width*height + width*height/2
	case PixelFormatRGBA32:
		return width * height * 4
	default:
		return 0
	}
}

// AudioFormat represents audio sample formats.
type AudioFormat int

const (
	AudioFormatS16 AudioFormat = iota // Signed 16-bit little-endian PCM
	AudioFormatF32                    // 32-bit float PCM
)

func (a AudioFormat) String() string {
	switch a {
	case AudioFormatS16:
		return "S16"
	case AudioFormatF32:
		return "F32"
	default:
		return "Unknown"
	}
}

// BytesPerSample returns the number of bytes per sample for this format.
func (a AudioFormat) BytesPerSample() int {
	switch a {
	case AudioFormatS16:
		return 2
	case AudioFormatF32:
		return 4
	default:
		return 0
	}
}

// Sample is one unit of media crossing the engine boundary: a raw frame
// or PCM buffer on the way into an encoder (or an encoded chunk into a
// decoder), and an encoded chunk (or raw buffer) on the way out.
//
// One payload type serves all four codec kinds so the queue, worker,
// bridge and pool exist exactly once instead of per codec kind.
//
// Ownership: a Sample submitted to an Engine is owned by the Engine until
// the corresponding output (or discard) has happened. A Sample delivered
// to an output callback is only valid for the duration of the callback;
// its Data is backed by a pooled buffer that is recycled as soon as the
// callback returns. Use Clone to keep it longer.
type Sample struct {
	Data []byte

	Timestamp int64 // presentation timestamp in microseconds
	Duration  int64 // duration in microseconds (0 if unknown)

	Key    bool  // encoded payloads: keyframe / sync sample
	Marker int64 // opaque caller marker, carried input -> output in order

	// Raw video payloads
	Format PixelFormat
	Width  int
	Height int

	// Raw audio payloads
	AudioFormat AudioFormat
	SampleRate  int
	Channels    int

	buf *PooledBuffer
}

// Clone returns a deep copy of the sample whose Data survives the
// delivery callback.
func (s *Sample) Clone() *Sample {
	c := *s
	c.buf = nil
	c.Data = make([]byte, len(s.Data))
	copy(c.Data, s.Data)
	return &c
}

// release returns the backing pooled buffer, if any. Safe to call more
// than once.
func (s *Sample) release() {
	if s == nil || s.buf == nil {
		return
	}
	b := s.buf
	s.buf = nil
	s.Data = nil
	b.Release()
}
