// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"musicpainter/internal/transport"
)

func TestPacketRoundTrip(t *testing.T) {
	frame := transport.Frame{
		Index:       41,
		Total:       43,
		Frequencies: []float64{440, 880.5},
		Capped:      true,
		Timestamp:   1234567890,
	}
	var buf bytes.Buffer
	AppendPacket(&buf, 7, frame)
	if buf.Len() != headerSize+8 {
		t.Fatalf("packet length = %d, want %d", buf.Len(), headerSize+8)
	}

	p, err := DecodePacket(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if p.Sequence != 7 || p.Frame.Index != 41 || p.Frame.Total != 43 || !p.Frame.Capped || p.Frame.Timestamp != 1234567890 {
		t.Errorf("decoded header = %+v", p)
	}
	if len(p.Frame.Frequencies) != 2 || p.Frame.Frequencies[0] != 440 || p.Frame.Frequencies[1] != 880.5 {
		t.Errorf("decoded frequencies = %v", p.Frame.Frequencies)
	}

	if _, err := DecodePacket(buf.Bytes()[:headerSize+3]); err == nil {
		t.Error("truncated packet should fail to decode")
	}
}

func TestPublisherLoopback(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Skipf("cannot listen on loopback: %v", err)
	}
	defer conn.Close()

	pub, err := Dial(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer pub.Close()

	for i := range 2 {
		if err := pub.Send(transport.Frame{Index: i, Frequencies: []float64{100 * float64(i+1)}}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	buf := make([]byte, 1500)
	for i := range 2 {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("read packet %d: %v", i, err)
		}
		p, err := DecodePacket(buf[:n])
		if err != nil {
			t.Fatalf("decode packet %d: %v", i, err)
		}
		if p.Sequence != uint32(i+1) || p.Frame.Index != i || p.Frame.Frequencies[0] != float64(100*(i+1)) {
			t.Errorf("packet %d = %+v", i, p)
		}
	}
}

func TestPublisherRejectsOtherPayloads(t *testing.T) {
	pub, err := Dial("127.0.0.1:9")
	if err != nil {
		t.Skipf("cannot dial loopback: %v", err)
	}
	defer pub.Close()

	if err := pub.Send("hello"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Send(string) error = %v, want ErrUnsupported", err)
	}
	pub.Close()
	if err := pub.Send(transport.Frame{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close error = %v, want ErrClosed", err)
	}
}

func TestNewUDPPublisherNilSender(t *testing.T) {
	if _, err := NewUDPPublisher(nil); err == nil {
		t.Error("expected error for nil sender")
	}
}
