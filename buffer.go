package dtcinitium

// rowMetaSize is the per-row metadata prefix the device sends ahead of the
// channel data: the 4-byte packet header plus the 20-byte stream metadata
// block.
const rowMetaSize = 24

// rowBytes returns the fixed per-row byte width for a channel count.
func rowBytes(channels int) int {
	return channels*4 + rowMetaSize
}

// sampleBuffer is the row-major byte matrix acquisition rows are received
// into. It is exclusively owned by the Device and lent to one acquisition
// session at a time.
type sampleBuffer struct {
	data     []byte
	rows     int
	rowWidth int
}

func newSampleBuffer(rows, rowWidth int) *sampleBuffer {
	return &sampleBuffer{
		data:     make([]byte, rows*rowWidth),
		rows:     rows,
		rowWidth: rowWidth,
	}
}

// row returns the i-th buffer row.
func (b *sampleBuffer) row(i int) []byte {
	return b.data[i*b.rowWidth : (i+1)*b.rowWidth]
}

// grow reallocates the buffer so it can hold at least rows rows of at least
// rowWidth bytes each. Capacity never shrinks, and when the current capacity
// already suffices the buffer is left untouched.
//
// Growth does not preserve prior contents: the buffer only ever holds the
// rows of the in-flight (or most recent) acquisition, which are fully
// rewritten on every run. Callers must not grow the buffer while an
// acquisition session holds a reference to it.
func (b *sampleBuffer) grow(rows, rowWidth int) {
	if rows <= b.rows && rowWidth <= b.rowWidth {
		return
	}
	if rows < b.rows {
		rows = b.rows
	}
	if rowWidth < b.rowWidth {
		rowWidth = b.rowWidth
	}

	b.data = make([]byte, rows*rowWidth)
	b.rows = rows
	b.rowWidth = rowWidth
}
