package packet

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPacketType indicates a packet type outside the known set.
	// The framing position of the connection can no longer be trusted, so the
	// connection should be re-synchronized or reopened.
	ErrUnknownPacketType = errors.New("unknown packet type")

	// ErrUnexpectedPacket indicates that a packet of a different type arrived
	// where an acknowledgement was required.
	ErrUnexpectedPacket = errors.New("unexpected packet type")

	// ErrNotFloatStream indicates that float decoding was requested on a
	// stream type that does not carry 32-bit floats.
	ErrNotFloatStream = errors.New("stream does not carry float samples")

	// ErrNotIntStream indicates that 16-bit integer decoding was requested on
	// a stream type that does not carry 2-byte samples.
	ErrNotIntStream = errors.New("stream does not carry 2-byte samples")
)

// DeviceError is an error reported by the DTC Initium itself via a type 128
// packet. It carries the device error code along with the response header
// fields of the packet that reported it.
type DeviceError struct {
	// ResponseCode is the response code field of the error packet header.
	ResponseCode uint8
	// MsgLen is the message length field of the error packet header.
	MsgLen uint16
	// Code is the device error code.
	Code int32
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error %d (response code %d, msglen %d)", e.Code, e.ResponseCode, e.MsgLen)
}
