package dtcinitium

import (
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/tunelipt/dtcinitium/command"
)

// minRateElapsed is the elapsed-time floor used when computing the achieved
// sample rate, so very fast transfers don't blow the division up.
const minRateElapsed = 4 * time.Millisecond

// acqState represents the state of an acquisition session.
type acqState uint32

const (
	acqIdle acqState = iota
	acqRunning
	acqCompleted
	acqFaulted
)

// String returns the string representation of the acquisition state.
func (s acqState) String() string {
	switch s {
	case acqIdle:
		return "idle"
	case acqRunning:
		return "running"
	case acqCompleted:
		return "completed"
	case acqFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// acquisition is one live acquisition session: it owns the receive loop that
// fills the shared sample buffer with fixed-width rows.
//
// The buffer is lent by the Device for the lifetime of the session; the
// Device must not grow it while the session is live. Progress counters are
// atomics so SamplesRead and SampleRate may be called concurrently with a
// running background loop.
type acquisition struct {
	conn     net.Conn
	metrics  *DeviceMetrics
	table    int
	nms      int
	buf      *sampleBuffer
	channels int
	rowWidth int
	timeout  time.Duration

	state       atomic.Uint32
	samplesRead atomic.Int64
	firstNano   atomic.Int64 // wall clock after the first row
	lastNano    atomic.Int64 // wall clock after the most recent later row

	done chan struct{}
	err  error // receive loop error, valid once done is closed
}

func newAcquisition(conn net.Conn, metrics *DeviceMetrics, tbl *SetupTable, nms int, buf *sampleBuffer, timeout time.Duration) *acquisition {
	return &acquisition{
		conn:     conn,
		metrics:  metrics,
		table:    tbl.Table,
		nms:      nms,
		buf:      buf,
		channels: tbl.Channels,
		rowWidth: rowBytes(tbl.Channels),
		timeout:  timeout,
		done:     make(chan struct{}),
	}
}

// run issues the acquisition-start command and receives exactly nms
// fixed-width rows into successive buffer rows on the calling goroutine.
//
// Each receive is bounded by the adaptive timeout. A short read or a
// transport timeout faults the session: the device's real-time stream cannot
// be replayed, so the loop never retries.
//
// The completion acknowledgement packet is NOT read here — it must be read by
// the caller strictly after the loop finishes, or the connection framing
// desynchronizes.
func (a *acquisition) run() error {
	a.state.Store(uint32(acqRunning))
	a.samplesRead.Store(0)

	if _, err := a.conn.Write([]byte(command.AD2(a.table, a.nms))); err != nil {
		return a.fault(fmt.Errorf("send acquisition start: %w", err))
	}

	for i := 0; i < a.nms; i++ {
		if err := a.conn.SetReadDeadline(time.Now().Add(a.timeout)); err != nil {
			return a.fault(fmt.Errorf("set receive deadline: %w", err))
		}

		row := a.buf.row(i)[:a.rowWidth]
		if _, err := io.ReadFull(a.conn, row); err != nil {
			return a.fault(fmt.Errorf("receive sample row %d of %d: %w", i+1, a.nms, err))
		}

		now := time.Now().UnixNano()
		if i == 0 {
			a.firstNano.Store(now)
			a.lastNano.Store(now)
		} else {
			a.lastNano.Store(now)
		}
		a.samplesRead.Store(int64(i + 1))
		a.metrics.addSampleRecvCount(1)
	}

	a.state.Store(uint32(acqCompleted))

	return nil
}

// start runs the receive loop on its own goroutine. The session's done
// channel is closed when the loop exits, with the loop error stored in err.
func (a *acquisition) start() {
	go func() {
		a.err = a.run()
		close(a.done)
	}()
}

// wait blocks until the background receive loop has exited and returns its
// error.
func (a *acquisition) wait() error {
	<-a.done
	return a.err
}

func (a *acquisition) fault(err error) error {
	a.state.Store(uint32(acqFaulted))
	a.metrics.incAcqFaultCount()
	return err
}

// SamplesRead returns the number of rows received so far. Safe to call
// concurrently with the running receive loop; a stale-by-one read is
// possible, a torn read is not.
func (a *acquisition) SamplesRead() int {
	return int(a.samplesRead.Load())
}

// SampleRate returns the achieved sample rate in samples per second,
// measured from the first received row to the most recent one. It returns 0
// until two rows have been received.
func (a *acquisition) SampleRate() float64 {
	n := a.samplesRead.Load()
	if n < 2 {
		return 0
	}

	elapsed := time.Duration(a.lastNano.Load() - a.firstNano.Load())
	if elapsed < minRateElapsed {
		elapsed = minRateElapsed
	}

	return float64(n-1) / elapsed.Seconds()
}
