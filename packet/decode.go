package packet

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// streamMetaSize is the size of the acquisition metadata block that follows
// the message number and value count in a stream packet body.
const streamMetaSize = 16

type readOptions struct {
	raiseDeviceError bool
}

// ReadOption configures the behavior of ReadPacket.
type ReadOption func(*readOptions)

// RaiseDeviceError makes ReadPacket return a *DeviceError when a type 128
// packet is read, instead of returning the ErrorPacket as ordinary data.
//
// The error packet body is fully consumed either way, so the connection
// framing stays intact.
func RaiseDeviceError() ReadOption {
	return func(o *readOptions) {
		o.raiseDeviceError = true
	}
}

// ReadPacket reads and decodes one complete response packet from r.
//
// It reads the 4-byte header, then dispatches on the packet type to a body
// reader that consumes exactly the bytes the type dictates — never more,
// never less. Partial reads are retried by io.ReadFull until the exact byte
// count is obtained or the transport reports closure/timeout; a short read
// surfaces as io.ErrUnexpectedEOF wrapped in the returned error.
//
// An unknown packet type returns ErrUnknownPacketType. After that the framing
// position of the connection can no longer be trusted.
func ReadPacket(r io.Reader, opts ...ReadOption) (Packet, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}

	var hbuf [HeaderSize]byte
	if _, err := io.ReadFull(r, hbuf[:]); err != nil {
		return nil, fmt.Errorf("read packet header: %w", err)
	}
	hdr := DecodeHeader(hbuf)

	return readBody(r, hdr, &o)
}

// ReadAck reads one packet from r and requires it to be an acknowledgement.
//
// A device error packet is surfaced as *DeviceError; any other packet type
// returns ErrUnexpectedPacket. Used to consume the command handshake
// responses the device sends after configuration and control commands.
func ReadAck(r io.Reader) (*Ack, error) {
	pkt, err := ReadPacket(r, RaiseDeviceError())
	if err != nil {
		return nil, err
	}

	ack, ok := pkt.(*Ack)
	if !ok {
		return nil, fmt.Errorf("%w: got %s, want ack", ErrUnexpectedPacket, pkt.Type())
	}
	return ack, nil
}

func readBody(r io.Reader, hdr Header, o *readOptions) (Packet, error) {
	switch hdr.Type {
	case TypeAck:
		warn, err := readInt32(r)
		if err != nil {
			return nil, fmt.Errorf("read ack body: %w", err)
		}
		return &Ack{Hdr: hdr, Warn: warn}, nil

	case TypeError:
		code, err := readInt32(r)
		if err != nil {
			return nil, fmt.Errorf("read error body: %w", err)
		}
		pkt := &ErrorPacket{Hdr: hdr, Code: code}
		if o.raiseDeviceError {
			return nil, pkt.Err()
		}
		return pkt, nil

	case TypeIntValue:
		val, err := readInt32(r)
		if err != nil {
			return nil, fmt.Errorf("read int value body: %w", err)
		}
		return &IntValue{Hdr: hdr, Value: val}, nil

	case TypeFloatValue:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("read float value body: %w", err)
		}
		val := math.Float32frombits(binary.BigEndian.Uint32(buf[:]))
		return &FloatValue{Hdr: hdr, Value: val}, nil

	case TypeIntMatrix:
		return readIntMatrix(r, hdr)

	case TypeStream16, TypeStream17, TypeStream19:
		return readStream(r, hdr)

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownPacketType, uint8(hdr.Type))
	}
}

func readIntMatrix(r io.Reader, hdr Header) (Packet, error) {
	var dims [4]byte
	if _, err := io.ReadFull(r, dims[:]); err != nil {
		return nil, fmt.Errorf("read matrix dimensions: %w", err)
	}
	rows := binary.BigEndian.Uint16(dims[0:2])
	cols := binary.BigEndian.Uint16(dims[2:4])

	n := int(rows) * int(cols)
	raw := make([]byte, n*4)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read matrix data (%dx%d): %w", rows, cols, err)
	}

	data := make([]int32, n)
	for i := range data {
		data[i] = int32(binary.BigEndian.Uint32(raw[i*4:])) //nolint:gosec
	}

	return &IntMatrix{Hdr: hdr, Rows: rows, Cols: cols, Data: data}, nil
}

func readStream(r io.Reader, hdr Header) (Packet, error) {
	var counts [4]byte
	if _, err := io.ReadFull(r, counts[:]); err != nil {
		return nil, fmt.Errorf("read stream counts: %w", err)
	}
	msnum := binary.BigEndian.Uint16(counts[0:2])
	nvals := binary.BigEndian.Uint16(counts[2:4])

	// The 16-byte acquisition block: bytes 0..11 are single-byte fields
	// (unit type at 3, setup table at 4, frame count at 5), bytes 12..13 a
	// 16-bit field, byte 14 the conversion flag and byte 15 the sequence
	// number.
	var meta [streamMetaSize]byte
	if _, err := io.ReadFull(r, meta[:]); err != nil {
		return nil, fmt.Errorf("read stream metadata: %w", err)
	}

	width := streamSampleWidth(hdr.Type)
	data := make([]byte, int(nvals)*width)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read stream samples (%d x %d bytes): %w", nvals, width, err)
	}

	return &Stream{
		Hdr:        hdr,
		MsgNum:     msnum,
		NumValues:  nvals,
		UnitType:   meta[3],
		Table:      meta[4],
		FrameCount: meta[5],
		Converted:  meta[14],
		Seq:        meta[15],
		Data:       data,
	}, nil
}

func readInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil //nolint:gosec
}
