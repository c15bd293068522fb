package webcodecs

import (
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
)

// DefaultMTU is the default maximum RTP packet size.
const DefaultMTU = 1200

// RTP clock rates.
const (
	opusClockRate  = 48000
	videoClockRate = 90000
)

// RTPPacketizer converts encoded output samples into RTP packets.
type RTPPacketizer interface {
	Packetize(chunk *Sample) ([]*rtp.Packet, error)
}

// rtpClock converts a microsecond timestamp to RTP clock units.
func rtpClock(timestampMicros int64, clockRate uint32) uint32 {
	return uint32(timestampMicros * int64(clockRate) / 1_000_000)
}

// OpusPacketizer packetizes encoded Opus chunks using pion's payloader.
type OpusPacketizer struct {
	ssrc        uint32
	payloadType uint8
	mtu         int
	sequencer   rtp.Sequencer
	payloader   *codecs.OpusPayloader
	mu          sync.Mutex
}

// NewOpusPacketizer creates a new Opus RTP packetizer.
func NewOpusPacketizer(ssrc uint32, pt uint8, mtu int) *OpusPacketizer {
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	return &OpusPacketizer{
		ssrc:        ssrc,
		payloadType: pt,
		mtu:         mtu,
		sequencer:   rtp.NewRandomSequencer(),
		payloader:   &codecs.OpusPayloader{},
	}
}

// Packetize converts one encoded Opus chunk to RTP packets.
func (p *OpusPacketizer) Packetize(chunk *Sample) ([]*rtp.Packet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(chunk.Data) == 0 {
		return nil, nil
	}
	payloads := p.payloader.Payload(uint16(p.mtu-12), chunk.Data)
	packets := make([]*rtp.Packet, len(payloads))
	for i, payload := range payloads {
		packets[i] = &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         true, // audio sets the marker on every packet
				PayloadType:    p.payloadType,
				SequenceNumber: p.sequencer.NextSequenceNumber(),
				Timestamp:      rtpClock(chunk.Timestamp, opusClockRate),
				SSRC:           p.ssrc,
			},
			Payload: payload,
		}
	}
	return packets, nil
}

// VP8Packetizer packetizes encoded VP8 chunks using pion's payloader.
type VP8Packetizer struct {
	ssrc        uint32
	payloadType uint8
	mtu         int
	sequencer   rtp.Sequencer
	payloader   *codecs.VP8Payloader
	mu          sync.Mutex
}

// NewVP8Packetizer creates a new VP8 RTP packetizer.
func NewVP8Packetizer(ssrc uint32, pt uint8, mtu int) *VP8Packetizer {
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	return &VP8Packetizer{
		ssrc:        ssrc,
		payloadType: pt,
		mtu:         mtu,
		sequencer:   rtp.NewRandomSequencer(),
		payloader:   &codecs.VP8Payloader{},
	}
}

// Packetize converts one encoded VP8 frame to RTP packets. The marker
// bit is set on the last packet of the frame.
func (p *VP8Packetizer) Packetize(chunk *Sample) ([]*rtp.Packet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(chunk.Data) == 0 {
		return nil, nil
	}
	payloads := p.payloader.Payload(uint16(p.mtu-12), chunk.Data)
	packets := make([]*rtp.Packet, len(payloads))
	for i, payload := range payloads {
		packets[i] = &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         i == len(payloads)-1,
				PayloadType:    p.payloadType,
				SequenceNumber: p.sequencer.NextSequenceNumber(),
				Timestamp:      rtpClock(chunk.Timestamp, videoClockRate),
				SSRC:           p.ssrc,
			},
			Payload: payload,
		}
	}
	return packets, nil
}
