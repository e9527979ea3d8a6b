// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	applog "musicpainter/internal/log"
	"musicpainter/internal/transport"
)

// Packet layout, all fields big endian:
//
//	uint32  sequence number
//	int64   timestamp (unix nanoseconds)
//	uint32  chunk index
//	uint32  expected chunk count (0 when unbounded)
//	uint8   flags (bit 0: frequency cap applied)
//	uint16  channel count N
//	N x float32 dominant frequency per channel
const headerSize = 4 + 8 + 4 + 4 + 1 + 2

const flagCapped = 1 << 0

// ErrUnsupported is returned by Send for values that are not transport.Frame.
var ErrUnsupported = errors.New("udp publisher: unsupported payload")

// UDPPublisher packs each published frame into a binary packet and sends it
// over UDP using a UDPSender.
type UDPPublisher struct {
	sender      *UDPSender
	mu          sync.Mutex    // Serializes packet building.
	sequenceNum uint32        // Monotonically increasing sequence number for packets.
	packet      *bytes.Buffer // Reusable buffer for constructing the binary packet.
}

// NewUDPPublisher creates a publisher on top of sender.
func NewUDPPublisher(sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	applog.Infof("UDPPublisher: Initializing (target %s)", sender.targetAddr)
	return &UDPPublisher{
		sender: sender,
		packet: new(bytes.Buffer),
	}, nil
}

// Dial resolves address and returns a publisher with its own sender.
func Dial(address string) (*UDPPublisher, error) {
	sender, err := NewUDPSender(address)
	if err != nil {
		return nil, err
	}
	return NewUDPPublisher(sender)
}

// Send packs a transport.Frame (or *transport.Frame) and sends it.
func (p *UDPPublisher) Send(data any) error {
	var frame transport.Frame
	switch f := data.(type) {
	case transport.Frame:
		frame = f
	case *transport.Frame:
		if f == nil {
			return ErrUnsupported
		}
		frame = *f
	default:
		return fmt.Errorf("%w: %T", ErrUnsupported, data)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.sequenceNum++
	p.packet.Reset()
	AppendPacket(p.packet, p.sequenceNum, frame)
	return p.sender.Send(p.packet.Bytes())
}

// Close closes the underlying sender.
func (p *UDPPublisher) Close() error {
	return p.sender.Close()
}

// AppendPacket writes the binary encoding of frame to buf.
func AppendPacket(buf *bytes.Buffer, seq uint32, frame transport.Frame) {
	var flags uint8
	if frame.Capped {
		flags |= flagCapped
	}
	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[0:], seq)
	binary.BigEndian.PutUint64(hdr[4:], uint64(frame.Timestamp))
	binary.BigEndian.PutUint32(hdr[12:], uint32(frame.Index))
	binary.BigEndian.PutUint32(hdr[16:], uint32(frame.Total))
	hdr[20] = flags
	binary.BigEndian.PutUint16(hdr[21:], uint16(len(frame.Frequencies)))
	buf.Write(hdr[:])

	var f [4]byte
	for _, v := range frame.Frequencies {
		binary.BigEndian.PutUint32(f[:], math.Float32bits(float32(v)))
		buf.Write(f[:])
	}
}

// Packet is a decoded UDP frame packet.
type Packet struct {
	Sequence uint32
	Frame    transport.Frame
}

// DecodePacket parses a packet written by AppendPacket.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, fmt.Errorf("udp packet too short: %d bytes", len(b))
	}
	n := int(binary.BigEndian.Uint16(b[21:]))
	if len(b) != headerSize+4*n {
		return Packet{}, fmt.Errorf("udp packet length %d does not match %d channels", len(b), n)
	}
	p := Packet{Sequence: binary.BigEndian.Uint32(b[0:])}
	p.Frame.Timestamp = int64(binary.BigEndian.Uint64(b[4:]))
	p.Frame.Index = int(binary.BigEndian.Uint32(b[12:]))
	p.Frame.Total = int(binary.BigEndian.Uint32(b[16:]))
	p.Frame.Capped = b[20]&flagCapped != 0
	p.Frame.Frequencies = make([]float64, n)
	for i := range n {
		off := headerSize + 4*i
		p.Frame.Frequencies[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(b[off:])))
	}
	return p, nil
}

var _ transport.Transport = (*UDPPublisher)(nil)
