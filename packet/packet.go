// Package packet implements decoding of the binary response packets emitted by
// the DTC Initium over its TCP command connection.
//
// Every response starts with a fixed 4-byte header (response code, packet type,
// message length, big-endian) followed by a type-specific body. The known packet
// types are acknowledgements, device errors, scalar integer/float values, an
// integer matrix, and the three raw sample stream formats used during data
// acquisition.
package packet

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Type identifies the packet variant carried after the 4-byte response header.
type Type uint8

// Packet types understood by the DTC Initium protocol.
const (
	// TypeAck acknowledges a command; its body carries a warning code
	// (zero for normal operation).
	TypeAck Type = 4
	// TypeIntValue carries a single signed 32-bit integer.
	TypeIntValue Type = 8
	// TypeFloatValue carries a single 32-bit float.
	TypeFloatValue Type = 9
	// TypeStream16 is a raw sample stream with 2 bytes per sample.
	TypeStream16 Type = 16
	// TypeStream17 is a raw sample stream with 3 bytes per sample.
	TypeStream17 Type = 17
	// TypeStream19 is a raw sample stream of 32-bit floats.
	TypeStream19 Type = 19
	// TypeIntMatrix carries a row-major signed 32-bit integer matrix.
	TypeIntMatrix Type = 33
	// TypeError reports a device error; its body carries the error code.
	TypeError Type = 128
)

// String returns the string representation of the packet type.
func (t Type) String() string {
	switch t {
	case TypeAck:
		return "ack"
	case TypeIntValue:
		return "int-value"
	case TypeFloatValue:
		return "float-value"
	case TypeStream16:
		return "stream-16"
	case TypeStream17:
		return "stream-17"
	case TypeStream19:
		return "stream-19"
	case TypeIntMatrix:
		return "int-matrix"
	case TypeError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// HeaderSize is the size of the fixed response header in bytes.
const HeaderSize = 4

// Header is the fixed 4-byte prefix of every device response.
type Header struct {
	// Code is the response code reported by the device.
	Code uint8
	// Type identifies the packet body that follows.
	Type Type
	// MsgLen is the message length field reported by the device.
	MsgLen uint16
}

// DecodeHeader decodes the fixed 4-byte response header.
func DecodeHeader(buf [HeaderSize]byte) Header {
	return Header{
		Code:   buf[0],
		Type:   Type(buf[1]),
		MsgLen: binary.BigEndian.Uint16(buf[2:4]),
	}
}

// Packet is a decoded device response. Concrete types are Ack, ErrorPacket,
// IntValue, FloatValue, IntMatrix and Stream.
type Packet interface {
	// Header returns the 4-byte response header the packet was decoded from.
	Header() Header
	// Type returns the packet type.
	Type() Type
}

// Ack is a command acknowledgement. Warn is positive when the device issued a
// warning, zero for normal operation.
type Ack struct {
	Hdr  Header
	Warn int32
}

func (p *Ack) Header() Header { return p.Hdr }
func (p *Ack) Type() Type     { return TypeAck }

// ErrorPacket reports a device error as ordinary data. ReadPacket returns it
// only when the RaiseDeviceError option is not set; otherwise the error is
// surfaced as a *DeviceError.
type ErrorPacket struct {
	Hdr  Header
	Code int32
}

func (p *ErrorPacket) Header() Header { return p.Hdr }
func (p *ErrorPacket) Type() Type     { return TypeError }

// Err converts the packet into the equivalent *DeviceError.
func (p *ErrorPacket) Err() *DeviceError {
	return &DeviceError{ResponseCode: p.Hdr.Code, MsgLen: p.Hdr.MsgLen, Code: p.Code}
}

// IntValue carries a single signed 32-bit integer.
type IntValue struct {
	Hdr   Header
	Value int32
}

func (p *IntValue) Header() Header { return p.Hdr }
func (p *IntValue) Type() Type     { return TypeIntValue }

// FloatValue carries a single 32-bit float.
type FloatValue struct {
	Hdr   Header
	Value float32
}

func (p *FloatValue) Header() Header { return p.Hdr }
func (p *FloatValue) Type() Type     { return TypeFloatValue }

// IntMatrix carries a Rows×Cols signed 32-bit integer matrix in row-major order.
type IntMatrix struct {
	Hdr  Header
	Rows uint16
	Cols uint16
	Data []int32
}

func (p *IntMatrix) Header() Header { return p.Hdr }
func (p *IntMatrix) Type() Type     { return TypeIntMatrix }

// At returns the matrix element at row r, column c.
func (p *IntMatrix) At(r, c int) int32 {
	return p.Data[r*int(p.Cols)+c]
}

// Stream is a raw sample stream packet (types 16, 17 and 19). The three types
// share the same layout and differ only in the per-sample width: 2, 3 and 4
// bytes respectively. Data holds the raw, big-endian sample bytes.
type Stream struct {
	Hdr Header
	// MsgNum is the message number within the acquisition run.
	MsgNum uint16
	// NumValues is the number of samples in Data.
	NumValues uint16
	// UnitType is the engineering unit type selected on the device.
	UnitType uint8
	// Table is the setup table the stream was acquired with.
	Table uint8
	// FrameCount is the per-sample averaging frame count.
	FrameCount uint8
	// Converted indicates whether the samples are EU-converted.
	Converted uint8
	// Seq is the stream sequence number.
	Seq uint8
	// Data holds NumValues samples of SampleWidth() bytes each.
	Data []byte
}

func (p *Stream) Header() Header { return p.Hdr }
func (p *Stream) Type() Type     { return p.Hdr.Type }

// SampleWidth returns the number of bytes per sample for the stream type.
func (p *Stream) SampleWidth() int {
	return streamSampleWidth(p.Hdr.Type)
}

// Floats decodes the samples of a type 19 stream as 32-bit floats.
// It returns ErrNotFloatStream for the 2 and 3 byte stream types.
func (p *Stream) Floats() ([]float32, error) {
	if p.Hdr.Type != TypeStream19 {
		return nil, fmt.Errorf("%w: type %s", ErrNotFloatStream, p.Hdr.Type)
	}
	vals := make([]float32, p.NumValues)
	for i := range vals {
		vals[i] = math.Float32frombits(binary.BigEndian.Uint32(p.Data[i*4:]))
	}
	return vals, nil
}

// Ints16 decodes the samples of a type 16 stream as signed 16-bit integers.
// It returns ErrNotIntStream for the other stream types.
func (p *Stream) Ints16() ([]int16, error) {
	if p.Hdr.Type != TypeStream16 {
		return nil, fmt.Errorf("%w: type %s", ErrNotIntStream, p.Hdr.Type)
	}
	vals := make([]int16, p.NumValues)
	for i := range vals {
		vals[i] = int16(binary.BigEndian.Uint16(p.Data[i*2:])) //nolint:gosec
	}
	return vals, nil
}

func streamSampleWidth(t Type) int {
	switch t {
	case TypeStream16:
		return 2
	case TypeStream17:
		return 3
	case TypeStream19:
		return 4
	default:
		return 0
	}
}
