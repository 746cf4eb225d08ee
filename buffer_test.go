package dtcinitium

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleBuffer_Rows(t *testing.T) {
	buf := newSampleBuffer(10, rowBytes(4))

	assert.Equal(t, 10, buf.rows)
	assert.Equal(t, 40, buf.rowWidth)
	assert.Len(t, buf.data, 400)

	row := buf.row(3)
	assert.Len(t, row, 40)
	row[0] = 0xAB
	assert.Equal(t, byte(0xAB), buf.data[3*40])
}

func TestSampleBuffer_Grow(t *testing.T) {
	buf := newSampleBuffer(10, rowBytes(4))

	// Capacity already sufficient: untouched.
	prev := &buf.data[0]
	buf.grow(5, rowBytes(4))
	assert.Equal(t, 10, buf.rows)
	assert.Same(t, prev, &buf.data[0])

	// More rows requested: reallocates to at least that many rows, row
	// width unchanged.
	buf.grow(25, rowBytes(4))
	assert.Equal(t, 25, buf.rows)
	assert.Equal(t, rowBytes(4), buf.rowWidth)

	// Wider rows requested: row count never shrinks.
	buf.grow(5, rowBytes(16))
	assert.Equal(t, 25, buf.rows)
	assert.Equal(t, rowBytes(16), buf.rowWidth)
	assert.Len(t, buf.data, 25*rowBytes(16))
}

func TestRowBytes(t *testing.T) {
	assert.Equal(t, 24, rowBytes(0))
	assert.Equal(t, 40, rowBytes(4))
	assert.Equal(t, 512*4+24, rowBytes(512))
}
