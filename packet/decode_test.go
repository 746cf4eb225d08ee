package packet

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(code uint8, typ Type, msglen uint16) []byte {
	buf := []byte{code, uint8(typ), 0, 0}
	binary.BigEndian.PutUint16(buf[2:], msglen)
	return buf
}

func TestDecodeHeader(t *testing.T) {
	hdr := DecodeHeader([4]byte{1, 4, 0x01, 0x02})
	assert.Equal(t, uint8(1), hdr.Code)
	assert.Equal(t, TypeAck, hdr.Type)
	assert.Equal(t, uint16(0x0102), hdr.MsgLen)
}

func TestReadPacket_Ack(t *testing.T) {
	raw := append(header(0, TypeAck, 4), 0, 0, 0, 7)

	pkt, err := ReadPacket(bytes.NewReader(raw))
	require.NoError(t, err)

	ack, ok := pkt.(*Ack)
	require.True(t, ok)
	assert.Equal(t, int32(7), ack.Warn)
	assert.Equal(t, TypeAck, ack.Type())
	assert.Equal(t, uint16(4), ack.Header().MsgLen)
}

func TestReadPacket_FloatValue(t *testing.T) {
	// Header (code=0, type=9, length=4) followed by big-endian 0x3F800000.
	raw := append(header(0, TypeFloatValue, 4), 0x3F, 0x80, 0x00, 0x00)

	pkt, err := ReadPacket(bytes.NewReader(raw))
	require.NoError(t, err)

	fv, ok := pkt.(*FloatValue)
	require.True(t, ok)
	assert.Equal(t, float32(1.0), fv.Value)
}

func TestReadPacket_IntValue(t *testing.T) {
	raw := append(header(0, TypeIntValue, 4), 0xFF, 0xFF, 0xFF, 0xFE)

	pkt, err := ReadPacket(bytes.NewReader(raw))
	require.NoError(t, err)

	iv, ok := pkt.(*IntValue)
	require.True(t, ok)
	assert.Equal(t, int32(-2), iv.Value)
}

func TestReadPacket_IntMatrix(t *testing.T) {
	raw := header(0, TypeIntMatrix, 4)
	raw = append(raw, 0, 2, 0, 3) // 2 rows, 3 cols
	for v := int32(1); v <= 6; v++ {
		raw = binary.BigEndian.AppendUint32(raw, uint32(v))
	}

	pkt, err := ReadPacket(bytes.NewReader(raw))
	require.NoError(t, err)

	m, ok := pkt.(*IntMatrix)
	require.True(t, ok)
	assert.Equal(t, uint16(2), m.Rows)
	assert.Equal(t, uint16(3), m.Cols)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6}, m.Data)
	assert.Equal(t, int32(6), m.At(1, 2))
}

func streamBody(nvals uint16, meta [16]byte, data []byte) []byte {
	body := binary.BigEndian.AppendUint16(nil, 42) // message number
	body = binary.BigEndian.AppendUint16(body, nvals)
	body = append(body, meta[:]...)
	return append(body, data...)
}

func TestReadPacket_Stream16(t *testing.T) {
	var meta [16]byte
	meta[3] = 3  // unit type
	meta[4] = 1  // setup table
	meta[5] = 64 // frame count
	meta[14] = 1 // conversion flag
	meta[15] = 9 // sequence

	raw := append(header(0, TypeStream16, 26), streamBody(3, meta, []byte{0, 1, 0, 2, 0xFF, 0xFF})...)

	pkt, err := ReadPacket(bytes.NewReader(raw))
	require.NoError(t, err)

	st, ok := pkt.(*Stream)
	require.True(t, ok)
	assert.Equal(t, TypeStream16, st.Type())
	assert.Equal(t, uint16(42), st.MsgNum)
	assert.Equal(t, uint16(3), st.NumValues)
	assert.Equal(t, uint8(3), st.UnitType)
	assert.Equal(t, uint8(1), st.Table)
	assert.Equal(t, uint8(64), st.FrameCount)
	assert.Equal(t, uint8(1), st.Converted)
	assert.Equal(t, uint8(9), st.Seq)
	assert.Equal(t, 2, st.SampleWidth())

	vals, err := st.Ints16()
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2, -1}, vals)

	_, err = st.Floats()
	assert.ErrorIs(t, err, ErrNotFloatStream)
}

// A stream body one byte shorter than its value count dictates is a protocol
// fault, not a silently truncated result.
func TestReadPacket_Stream16_ShortRead(t *testing.T) {
	var meta [16]byte
	raw := append(header(0, TypeStream16, 26), streamBody(3, meta, []byte{0, 1, 0, 2, 0xFF})...)

	_, err := ReadPacket(bytes.NewReader(raw))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadPacket_Stream19_Floats(t *testing.T) {
	var meta [16]byte
	data := binary.BigEndian.AppendUint32(nil, math.Float32bits(1.5))
	data = binary.BigEndian.AppendUint32(data, math.Float32bits(-2.25))

	raw := append(header(0, TypeStream19, 32), streamBody(2, meta, data)...)

	pkt, err := ReadPacket(bytes.NewReader(raw))
	require.NoError(t, err)

	st, ok := pkt.(*Stream)
	require.True(t, ok)
	assert.Equal(t, 4, st.SampleWidth())

	vals, err := st.Floats()
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2.25}, vals)

	_, err = st.Ints16()
	assert.ErrorIs(t, err, ErrNotIntStream)
}

func TestReadPacket_Stream17_Width(t *testing.T) {
	var meta [16]byte
	raw := append(header(0, TypeStream17, 29), streamBody(3, meta, make([]byte, 9))...)

	pkt, err := ReadPacket(bytes.NewReader(raw))
	require.NoError(t, err)

	st, ok := pkt.(*Stream)
	require.True(t, ok)
	assert.Equal(t, 3, st.SampleWidth())
	assert.Len(t, st.Data, 9)
}

func TestReadPacket_Error(t *testing.T) {
	raw := append(header(2, TypeError, 4), 0, 0, 0, 33)

	// By default the error packet is returned as ordinary data.
	pkt, err := ReadPacket(bytes.NewReader(raw))
	require.NoError(t, err)

	ep, ok := pkt.(*ErrorPacket)
	require.True(t, ok)
	assert.Equal(t, int32(33), ep.Code)

	devErr := ep.Err()
	assert.Equal(t, int32(33), devErr.Code)
	assert.Equal(t, uint8(2), devErr.ResponseCode)

	// With RaiseDeviceError the packet surfaces as a *DeviceError.
	_, err = ReadPacket(bytes.NewReader(raw), RaiseDeviceError())
	require.Error(t, err)

	var raised *DeviceError
	require.ErrorAs(t, err, &raised)
	assert.Equal(t, int32(33), raised.Code)
	assert.Contains(t, raised.Error(), "device error 33")
}

func TestReadPacket_UnknownType(t *testing.T) {
	raw := append(header(0, Type(200), 4), 0, 0, 0, 0)

	_, err := ReadPacket(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrUnknownPacketType)
}

func TestReadPacket_TruncatedHeader(t *testing.T) {
	_, err := ReadPacket(bytes.NewReader([]byte{0, 4}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadAck(t *testing.T) {
	raw := append(header(0, TypeAck, 4), 0, 0, 0, 0)

	ack, err := ReadAck(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, int32(0), ack.Warn)
}

func TestReadAck_UnexpectedPacket(t *testing.T) {
	raw := append(header(0, TypeIntValue, 4), 0, 0, 0, 1)

	_, err := ReadAck(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrUnexpectedPacket)
}

func TestReadAck_DeviceError(t *testing.T) {
	raw := append(header(1, TypeError, 4), 0, 0, 0, 12)

	_, err := ReadAck(bytes.NewReader(raw))

	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, int32(12), devErr.Code)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "ack", TypeAck.String())
	assert.Equal(t, "error", TypeError.String())
	assert.Equal(t, "stream-19", TypeStream19.String())
	assert.Equal(t, "unknown(200)", Type(200).String())
}
