package webcodecs

import (
	"bytes"
	"testing"
)

func TestOpusPacketizer(t *testing.T) {
	p := NewOpusPacketizer(0x1234, 111, DefaultMTU)

	chunk := &Sample{Data: []byte{0x78, 0x01, 0x02}, Timestamp: 20_000}
	packets, err := p.Packetize(chunk)
	if err != nil {
		t.Fatalf("Packetize: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("got %d packets, want 1 for a small chunk", len(packets))
	}

	pkt := packets[0]
	if !pkt.Marker {
		t.Error("audio packets must carry the marker bit")
	}
	if pkt.PayloadType != 111 || pkt.SSRC != 0x1234 {
		t.Errorf("header = pt %d ssrc %#x, want pt 111 ssrc 0x1234", pkt.PayloadType, pkt.SSRC)
	}
	// 20ms in the 48kHz RTP clock.
	if pkt.Timestamp != 960 {
		t.Errorf("timestamp = %d, want 960", pkt.Timestamp)
	}
	if !bytes.Equal(pkt.Payload, chunk.Data) {
		t.Errorf("payload = %v, want chunk data", pkt.Payload)
	}
}

func TestOpusPacketizer_EmptyChunk(t *testing.T) {
	p := NewOpusPacketizer(1, 111, DefaultMTU)
	packets, err := p.Packetize(&Sample{})
	if err != nil || packets != nil {
		t.Errorf("Packetize(empty) = (%v, %v), want (nil, nil)", packets, err)
	}
}

func TestVP8Packetizer_MarkerOnLastPacket(t *testing.T) {
	p := NewVP8Packetizer(0xABCD, 96, DefaultMTU)

	// Larger than one MTU so the frame fragments.
	frame := make([]byte, 3000)
	frame[0] = 0x10 // keyframe start
	packets, err := p.Packetize(&Sample{Data: frame, Timestamp: 33_333, Key: true})
	if err != nil {
		t.Fatalf("Packetize: %v", err)
	}
	if len(packets) < 2 {
		t.Fatalf("got %d packets, want fragmentation across at least 2", len(packets))
	}
	for i, pkt := range packets {
		last := i == len(packets)-1
		if pkt.Marker != last {
			t.Errorf("packet %d marker = %v, want %v", i, pkt.Marker, last)
		}
		if pkt.Timestamp != rtpClock(33_333, videoClockRate) {
			t.Errorf("packet %d timestamp = %d, want same clock for whole frame", i, pkt.Timestamp)
		}
	}

	// Sequence numbers increment by one across the frame.
	for i := 1; i < len(packets); i++ {
		if packets[i].SequenceNumber != packets[i-1].SequenceNumber+1 {
			t.Errorf("sequence gap between packet %d and %d", i-1, i)
		}
	}
}

func TestRTPClock(t *testing.T) {
	tests := []struct {
		micros int64
		rate   uint32
		want   uint32
	}{
		{0, 48000, 0},
		{20_000, 48000, 960},
		{1_000_000, 48000, 48000},
		{33_333, 90000, 2999},
	}
	for _, tt := range tests {
		if got := rtpClock(tt.micros, tt.rate); got != tt.want {
			t.Errorf("rtpClock(%d, %d) = %d, want %d", tt.micros, tt.rate, got, tt.want)
		}
	}
}
