//go:build darwin || linux

// Opus backends backed by libopus, loaded dynamically at runtime with
// purego. No cgo required; if the library is not present, Configure
// fails with a ConfigurationError and everything else keeps working.

package webcodecs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	opusOnce    sync.Once
	opusHandle  uintptr
	opusInitErr error
)

// libopus function pointers
var (
	opusEncoderCreate  func(fs, channels, application int32, errOut *int32) uintptr
	opusEncode         func(enc uintptr, pcm *int16, frameSize int32, data *byte, maxBytes int32) int32
	opusEncoderCtl     func(enc uintptr, request int32, value int32) int32
	opusEncoderDestroy func(enc uintptr)

	opusDecoderCreate  func(fs, channels int32, errOut *int32) uintptr
	opusDecode         func(dec uintptr, data *byte, dataLen int32, pcm *int16, frameSize, decodeFEC int32) int32
	opusDecoderDestroy func(dec uintptr)

	opusStrerror         func(code int32) uintptr
	opusGetVersionString func() uintptr
)

// Constants from opus_defines.h
const (
	opusAppVOIP  = 2048
	opusAppAudio = 2049

	opusSetBitrate        = 4002
	opusSetComplexity     = 4010
	opusSetInbandFEC      = 4012
	opusSetPacketLossPerc = 4014
	opusSetDTX            = 4016

	// Maximum samples per channel in one Opus frame (120 ms at 48 kHz).
	opusMaxFrameSamples = 5760
	// Recommended maximum packet size.
	opusMaxPacketBytes = 4000
)

func loadOpus() error {
	opusOnce.Do(func() {
		opusInitErr = loadOpusLib()
	})
	return opusInitErr
}

func loadOpusLib() error {
	var lastErr error
	for _, path := range opusLibPaths() {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			lastErr = err
			continue
		}
		opusHandle = handle
		loadOpusSymbols()
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to load libopus: %w", lastErr)
	}
	return errors.New("libopus not found in any standard location")
}

func opusLibPaths() []string {
	var paths []string
	if envPath := os.Getenv("OPUS_LIB_PATH"); envPath != "" {
		paths = append(paths, envPath)
	}
	switch runtime.GOOS {
	case "darwin":
		paths = append(paths,
			"libopus.dylib",
			"/usr/local/lib/libopus.dylib",
			"/opt/homebrew/lib/libopus.dylib",
		)
	case "linux":
		paths = append(paths,
			"libopus.so.0",
			"libopus.so",
			"/usr/lib/libopus.so.0",
			"/usr/local/lib/libopus.so.0",
		)
	}
	return paths
}

func loadOpusSymbols() {
	purego.RegisterLibFunc(&opusEncoderCreate, opusHandle, "opus_encoder_create")
	purego.RegisterLibFunc(&opusEncode, opusHandle, "opus_encode")
	// opus_encoder_ctl is variadic in C; every request we issue takes a
	// single int argument, which the fixed signature covers.
	purego.RegisterLibFunc(&opusEncoderCtl, opusHandle, "opus_encoder_ctl")
	purego.RegisterLibFunc(&opusEncoderDestroy, opusHandle, "opus_encoder_destroy")

	purego.RegisterLibFunc(&opusDecoderCreate, opusHandle, "opus_decoder_create")
	purego.RegisterLibFunc(&opusDecode, opusHandle, "opus_decode")
	purego.RegisterLibFunc(&opusDecoderDestroy, opusHandle, "opus_decoder_destroy")

	purego.RegisterLibFunc(&opusStrerror, opusHandle, "opus_strerror")
	purego.RegisterLibFunc(&opusGetVersionString, opusHandle, "opus_get_version_string")
}

// IsOpusAvailable reports whether libopus could be loaded.
func IsOpusAvailable() bool { return loadOpus() == nil }

// OpusVersion returns the libopus version string, or "" when the library
// is unavailable.
func OpusVersion() string {
	if !IsOpusAvailable() {
		return ""
	}
	return goStringFromPtr(opusGetVersionString())
}

func opusError(code int32) error {
	return fmt.Errorf("opus error %d: %s", code, goStringFromPtr(opusStrerror(code)))
}

// goStringFromPtr converts a C string pointer to a Go string.
func goStringFromPtr(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	p := *(*unsafe.Pointer)(unsafe.Pointer(&ptr))
	length := 0
	for *(*byte)(unsafe.Pointer(uintptr(p) + uintptr(length))) != 0 {
		length++
		if length > 1024 {
			break
		}
	}
	if length == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(p), length))
}

func init() {
	RegisterBackend(KindAudioEncoder, "opus", func() CodecBackend { return &opusEncoderBackend{} })
	RegisterBackend(KindAudioDecoder, "opus", func() CodecBackend { return &opusDecoderBackend{} })
}

// opusEncoderBackend implements CodecBackend over a native libopus
// encoder. It is driven exclusively by the engine's worker goroutine.
type opusEncoderBackend struct {
	cfg    AudioEncoderConfig
	handle uintptr

	pcm  []int16
	out  []byte
	outs []*Sample
}

func (b *opusEncoderBackend) Configure(params CodecParams) error {
	cfg, ok := params.(AudioEncoderConfig)
	if !ok {
		return &ConfigurationError{Reason: fmt.Sprintf("expected AudioEncoderConfig, got %T", params)}
	}
	if err := loadOpus(); err != nil {
		return &ConfigurationError{Reason: "libopus unavailable", Err: err}
	}
	switch cfg.SampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("opus does not support %d Hz", cfg.SampleRate)}
	}

	// Reconfigure drops the previous native encoder first.
	b.destroy()

	var cerr int32
	handle := opusEncoderCreate(int32(cfg.SampleRate), int32(cfg.Channels), opusAppAudio, &cerr)
	if handle == 0 || cerr != 0 {
		return &ConfigurationError{Reason: "opus_encoder_create", Err: opusError(cerr)}
	}
	if cfg.BitrateBps > 0 {
		opusEncoderCtl(handle, opusSetBitrate, int32(cfg.BitrateBps))
	}
	if cfg.Complexity > 0 {
		opusEncoderCtl(handle, opusSetComplexity, int32(cfg.Complexity))
	}
	if cfg.DTX {
		opusEncoderCtl(handle, opusSetDTX, 1)
	}
	if cfg.FEC {
		opusEncoderCtl(handle, opusSetInbandFEC, 1)
		opusEncoderCtl(handle, opusSetPacketLossPerc, 10)
	}

	b.cfg = cfg
	b.handle = handle
	if b.out == nil {
		b.out = make([]byte, opusMaxPacketBytes)
	}
	return nil
}

func (b *opusEncoderBackend) SubmitInput(in *Sample, _ bool) error {
	if b.handle == 0 {
		return ErrNotConfigured
	}
	numSamples := len(in.Data) / 2
	if numSamples == 0 || len(in.Data)%2 != 0 {
		return fmt.Errorf("%w: PCM payload of %d bytes", ErrInvalidInput, len(in.Data))
	}
	if numSamples%b.cfg.Channels != 0 {
		return fmt.Errorf("%w: %d samples not divisible by %d channels", ErrInvalidInput, numSamples, b.cfg.Channels)
	}
	frameSize := numSamples / b.cfg.Channels
	if frameSize > opusMaxFrameSamples {
		return fmt.Errorf("%w: frame of %d samples exceeds opus maximum", ErrInvalidInput, frameSize)
	}

	if cap(b.pcm) < numSamples {
		b.pcm = make([]int16, numSamples)
	}
	b.pcm = b.pcm[:numSamples]
	for i := 0; i < numSamples; i++ {
		b.pcm[i] = int16(binary.LittleEndian.Uint16(in.Data[i*2:]))
	}

	n := opusEncode(b.handle, &b.pcm[0], int32(frameSize), &b.out[0], int32(len(b.out)))
	if n < 0 {
		return opusError(n)
	}
	b.outs = append(b.outs, &Sample{
		Data:      b.out[:n],
		Timestamp: in.Timestamp,
		Duration:  int64(frameSize) * 1_000_000 / int64(b.cfg.SampleRate),
		Key:       true, // every opus packet is independently decodable
		Marker:    in.Marker,
	})
	return nil
}

func (b *opusEncoderBackend) DrainOutputs() []*Sample {
	outs := b.outs
	b.outs = nil
	return outs
}

// Flush has nothing buffered: opus emits one packet per input frame.
func (b *opusEncoderBackend) Flush() ([]*Sample, error) { return nil, nil }

// Reset drops the native encoder and recreates it with the current
// configuration, discarding all encoder history.
func (b *opusEncoderBackend) Reset() error {
	if b.handle == 0 {
		return nil
	}
	cfg := b.cfg
	return b.Configure(cfg)
}

func (b *opusEncoderBackend) Close() { b.destroy() }

func (b *opusEncoderBackend) destroy() {
	if b.handle != 0 {
		opusEncoderDestroy(b.handle)
		b.handle = 0
	}
}

// opusDecoderBackend implements CodecBackend over a native libopus
// decoder.
type opusDecoderBackend struct {
	cfg    AudioDecoderConfig
	handle uintptr

	pcm  []int16
	out  []byte
	outs []*Sample
}

func (b *opusDecoderBackend) Configure(params CodecParams) error {
	cfg, ok := params.(AudioDecoderConfig)
	if !ok {
		return &ConfigurationError{Reason: fmt.Sprintf("expected AudioDecoderConfig, got %T", params)}
	}
	if err := loadOpus(); err != nil {
		return &ConfigurationError{Reason: "libopus unavailable", Err: err}
	}
	switch cfg.SampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("opus does not support %d Hz", cfg.SampleRate)}
	}

	b.destroy()

	var cerr int32
	handle := opusDecoderCreate(int32(cfg.SampleRate), int32(cfg.Channels), &cerr)
	if handle == 0 || cerr != 0 {
		return &ConfigurationError{Reason: "opus_decoder_create", Err: opusError(cerr)}
	}
	b.cfg = cfg
	b.handle = handle
	maxSamples := opusMaxFrameSamples * cfg.Channels
	if cap(b.pcm) < maxSamples {
		b.pcm = make([]int16, maxSamples)
		b.out = make([]byte, maxSamples*2)
	}
	return nil
}

func (b *opusDecoderBackend) SubmitInput(in *Sample, _ bool) error {
	if b.handle == 0 {
		return ErrNotConfigured
	}
	if len(in.Data) == 0 {
		return fmt.Errorf("%w: empty chunk", ErrInvalidInput)
	}

	pcm := b.pcm[:opusMaxFrameSamples*b.cfg.Channels]
	n := opusDecode(b.handle, &in.Data[0], int32(len(in.Data)), &pcm[0], opusMaxFrameSamples, 0)
	if n < 0 {
		return opusError(n)
	}

	total := int(n) * b.cfg.Channels
	out := b.out[:total*2]
	for i := 0; i < total; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(pcm[i]))
	}
	b.outs = append(b.outs, &Sample{
		Data:        out,
		Timestamp:   in.Timestamp,
		Duration:    int64(n) * 1_000_000 / int64(b.cfg.SampleRate),
		Marker:      in.Marker,
		AudioFormat: AudioFormatS16,
		SampleRate:  b.cfg.SampleRate,
		Channels:    b.cfg.Channels,
	})
	return nil
}

func (b *opusDecoderBackend) DrainOutputs() []*Sample {
	outs := b.outs
	b.outs = nil
	return outs
}

func (b *opusDecoderBackend) Flush() ([]*Sample, error) { return nil, nil }

func (b *opusDecoderBackend) Reset() error {
	if b.handle == 0 {
		return nil
	}
	cfg := b.cfg
	return b.Configure(cfg)
}

func (b *opusDecoderBackend) Close() { b.destroy() }

func (b *opusDecoderBackend) destroy() {
	if b.handle != 0 {
		opusDecoderDestroy(b.handle)
		b.handle = 0
	}
}
