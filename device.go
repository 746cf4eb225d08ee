package dtcinitium

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tunelipt/dtcinitium/command"
	"github.com/tunelipt/dtcinitium/logger"
	"github.com/tunelipt/dtcinitium/packet"
	"github.com/tunelipt/dtcinitium/scanner"
)

// Device is a client for one DTC Initium over its persistent TCP command
// connection. It owns the connection, the setup table registry, the sample
// buffer and at most one live acquisition session.
//
// All wire operations are serialized: while an acquisition session is active
// the receive loop owns the connection and every other wire operation is
// refused with ErrAcquiring. Progress accessors (SamplesRead, SampleRate,
// IsAcquiring) are safe to call concurrently with a running background
// acquisition.
type Device struct {
	cfg      *ConnectionConfig
	logger   logger.Logger
	scanners *scanner.Scanners

	conn net.Conn

	// tables is the setup table registry, keyed by table id 1..5.
	tables *xsync.MapOf[int, *SetupTable]

	// mu serializes session lifecycle and all non-acquisition wire traffic.
	mu  sync.Mutex
	buf *sampleBuffer
	acq atomic.Pointer[acquisition]

	closed atomic.Bool

	metrics DeviceMetrics
}

// NewDevice wraps an existing connection to a DTC Initium.
//
// It does not perform the bootstrap handshake; use Connect for that, or call
// Bootstrap explicitly. Intended for tests and callers that manage the
// connection themselves.
func NewDevice(conn net.Conn, scanners *scanner.Scanners, cfg *ConnectionConfig) (*Device, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if scanners == nil {
		return nil, errors.New("scanners is nil")
	}
	if conn == nil {
		return nil, errors.New("conn is nil")
	}

	return &Device{
		cfg:      cfg,
		logger:   cfg.Logger(),
		scanners: scanners,
		conn:     conn,
		tables:   xsync.NewMapOf[int, *SetupTable](),
		buf:      newSampleBuffer(cfg.BufferRows(), rowBytes(cfg.BufferChannels())),
	}, nil
}

// Connect dials the DTC Initium described by cfg and performs the bootstrap
// handshake: scanner configuration (SD1), unit selection (PC4) and a default
// configuration of setup table 5.
//
// On handshake failure the connection is closed before returning.
func Connect(ctx context.Context, cfg *ConnectionConfig, scanners *scanner.Scanners) (*Device, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	dialer := net.Dialer{Timeout: cfg.HandshakeTimeout()}
	addr := net.JoinHostPort(cfg.Host(), strconv.Itoa(cfg.Port()))

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	dev, err := NewDevice(conn, scanners, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := dev.Bootstrap(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return dev, nil
}

// Bootstrap performs the startup handshake on the connection: it declares the
// scanner groups with SD1, selects the engineering unit with PC4 and
// configures setup table 5 with conservative defaults, consuming the
// acknowledgement of each step.
func (dev *Device) Bootstrap() error {
	dev.mu.Lock()

	timeout := dev.cfg.HandshakeTimeout()

	if _, err := dev.exec(command.SD1(dev.scanners.WireArgs()), timeout); err != nil {
		dev.mu.Unlock()
		return fmt.Errorf("configure scanners: %w", err)
	}

	if _, err := dev.exec(command.PC4(scanner.DefaultLRN, dev.cfg.UnitType(), ""), timeout); err != nil {
		dev.mu.Unlock()
		return fmt.Errorf("select units: %w", err)
	}
	dev.mu.Unlock()

	if _, err := dev.Configure(MaxTable, 1, 1, 50, 0, false); err != nil {
		return fmt.Errorf("configure default table: %w", err)
	}

	return nil
}

// Close closes the device connection. A running background acquisition
// faults on the closed connection; this is the only way to stop a session
// early.
func (dev *Device) Close() error {
	dev.closed.Store(true)
	return dev.conn.Close()
}

// Scanners returns the scanner/port model the device was created with.
func (dev *Device) Scanners() *scanner.Scanners { return dev.scanners }

// Metrics returns the device's atomic metrics.
func (dev *Device) Metrics() *DeviceMetrics { return &dev.metrics }

// Table returns the setup table configured for id, if any.
func (dev *Device) Table(stbl int) (*SetupTable, bool) {
	return dev.tables.Load(stbl)
}

// IsAcquiring reports whether an acquisition session is active.
func (dev *Device) IsAcquiring() bool {
	return dev.acq.Load() != nil
}

// SamplesRead returns the number of sample rows the active acquisition has
// received so far. It returns ErrNotAcquiring when no session is running.
func (dev *Device) SamplesRead() (int, error) {
	a := dev.acq.Load()
	if a == nil {
		return 0, ErrNotAcquiring
	}
	return a.SamplesRead(), nil
}

// SampleRate returns the sample rate achieved so far by the active
// acquisition, in samples per second. It returns ErrNotAcquiring when no
// session is running.
func (dev *Device) SampleRate() (float64, error) {
	a := dev.acq.Load()
	if a == nil {
		return 0, ErrNotAcquiring
	}
	return a.SampleRate(), nil
}

// Configure creates or replaces the setup table stbl on the device.
//
// nfr is the averaging frame count, nms the default message-set count, msd
// the minimum sample delay in milliseconds and trm the trigger mode. When no
// port ranges are given the table covers every port of every configured
// scanner. The derived channel count is the total number of ports the ranges
// expand to.
//
// Configure issues SD2 followed by SD3 and consumes the acknowledgement of
// each; a device-reported fault aborts the configuration before the registry
// is touched. It is refused while an acquisition session is active.
func (dev *Device) Configure(stbl, nfr, nms, msd, trm int, fast bool, ports ...string) (*SetupTable, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.acq.Load() != nil {
		return nil, ErrAcquiring
	}
	if stbl < MinTable || stbl > MaxTable {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTable, stbl)
	}
	if nfr < 1 {
		return nil, errors.New("frame count must be positive")
	}
	if nms < 1 {
		return nil, errors.New("message-set count must be positive")
	}
	if msd < 0 {
		return nil, errors.New("minimum sample delay must not be negative")
	}

	if len(ports) == 0 {
		ports = dev.scanners.DefaultRanges()
	}

	expanded, err := dev.scanners.ExpandPorts(ports...)
	if err != nil {
		return nil, err
	}

	tbl := &SetupTable{
		Table:          stbl,
		FrameCount:     nfr,
		MessageSets:    nms,
		MinSampleDelay: msd,
		TriggerMode:    trm,
		ScaleMode:      1,
		OutputComp:     2,
		Ports:          ports,
		Channels:       len(expanded),
		Fast:           fast,
	}

	timeout := dev.cfg.ReadTimeout()
	if _, err := dev.exec(command.SD2(stbl, nfr, nms, msd, trm), timeout); err != nil {
		return nil, fmt.Errorf("set table %d parameters: %w", stbl, err)
	}
	if _, err := dev.exec(command.SD3(stbl, ports...), timeout); err != nil {
		return nil, fmt.Errorf("assign table %d ports: %w", stbl, err)
	}

	dev.tables.Store(stbl, tbl)
	dev.logger.Debug("setup table configured", "table", stbl, "channels", tbl.Channels, "ports", ports)

	return tbl, nil
}

// Acquire runs a blocking acquisition of nms message sets against setup
// table stbl and returns the pressure matrix (one row per message set, one
// column per channel) along with the achieved sample rate in samples per
// second. A non-positive nms uses the table's configured message-set count.
func (dev *Device) Acquire(stbl, nms int) ([][]float64, float64, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	a, tbl, err := dev.beginAcquisition(stbl, nms)
	if err != nil {
		return nil, 0, err
	}

	if err := a.run(); err != nil {
		dev.clearSession(a)
		return nil, 0, err
	}

	return dev.finishAcquisition(a, tbl)
}

// Start begins a background acquisition of nms message sets against setup
// table stbl. The receive loop runs on its own goroutine; the caller is free
// to poll SamplesRead and SampleRate, and must call Read to complete the
// session. A non-positive nms uses the table's configured message-set count.
func (dev *Device) Start(stbl, nms int) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	a, _, err := dev.beginAcquisition(stbl, nms)
	if err != nil {
		return err
	}

	a.start()

	return nil
}

// Read blocks until the background acquisition started by Start has received
// all requested rows, then performs the completion handshake and returns the
// pressure matrix and achieved sample rate, like Acquire.
func (dev *Device) Read() ([][]float64, float64, error) {
	a := dev.acq.Load()
	if a == nil {
		return nil, 0, ErrNotAcquiring
	}

	err := a.wait()

	dev.mu.Lock()
	defer dev.mu.Unlock()

	if err != nil {
		dev.clearSession(a)
		return nil, 0, err
	}

	tbl, ok := dev.tables.Load(a.table)
	if !ok {
		dev.clearSession(a)
		return nil, 0, fmt.Errorf("%w: table %d", ErrTableNotConfigured, a.table)
	}

	return dev.finishAcquisition(a, tbl)
}

// Stop sends the global acquisition-abort command (AD0) and consumes its
// response. It aborts a device-side acquisition run; it cannot stop a live
// client session — close the connection for that — so it is refused while
// one is active.
func (dev *Device) Stop() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.acq.Load() != nil {
		return ErrAcquiring
	}

	_, err := dev.exec(command.AD0(), dev.cfg.ReadTimeout())
	return err
}

// SimpleAcquire starts an acquisition on setup table stbl and collects the
// decoded stream packets until the terminating acknowledgement, without
// touching the sample buffer. Useful for diagnostics at the packet level.
func (dev *Device) SimpleAcquire(stbl, nms int) ([]packet.Packet, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.acq.Load() != nil {
		return nil, ErrAcquiring
	}

	tbl, err := dev.lookupTable(stbl)
	if err != nil {
		return nil, err
	}
	if nms <= 0 {
		nms = tbl.MessageSets
	}

	if tbl.Fast {
		if _, err := dev.exec(command.SD5(-1, 0), dev.cfg.ReadTimeout()); err != nil {
			return nil, fmt.Errorf("arm fast mode: %w", err)
		}
	}

	if err := dev.sendCommand(command.AD2(stbl, nms)); err != nil {
		return nil, err
	}

	timeout := dev.acquireTimeout(tbl)
	var pkts []packet.Packet
	for {
		pkt, err := dev.readResponse(timeout)
		if err != nil {
			return nil, err
		}
		if pkt.Type() == packet.TypeAck {
			break
		}
		pkts = append(pkts, pkt)
	}

	if tbl.Fast {
		if _, err := dev.exec(command.SD5(-1, 1), dev.cfg.ReadTimeout()); err != nil {
			return pkts, fmt.Errorf("disarm fast mode: %w", err)
		}
	}

	return pkts, nil
}

// SetUnits selects the engineering unit unx for a logical range. A non-empty
// factor appends the optional conversion factor.
func (dev *Device) SetUnits(lrn, unx int, factor string) error {
	return dev.control(command.PC4(lrn, unx, factor))
}

// ZeroCalibrate zero-calibrates the scanners of a logical range.
func (dev *Device) ZeroCalibrate(lrn int) error {
	return dev.control(command.CA2(lrn))
}

// SetValve drives the calibration valve to valpos with pulse duration puldur.
func (dev *Device) SetValve(valpos, puldur int) error {
	return dev.control(command.CV1(valpos, puldur))
}

// Pulse sets the control pulse duration.
func (dev *Device) Pulse(puldur int) error {
	return dev.control(command.CP1(puldur))
}

// SetStabilizeTime sets the valve stabilization time.
func (dev *Device) SetStabilizeTime(stbtim int) error {
	return dev.control(command.CP2(stbtim))
}

// LatchScan latches the trigger on a port.
func (dev *Device) LatchScan(sport string) error {
	return dev.control(command.LA1(sport))
}

// ReleaseLatch releases the trigger latch.
func (dev *Device) ReleaseLatch() error {
	return dev.control(command.LA4())
}

// DeleteOffsets removes the offset assignment of ports from a setup table.
func (dev *Device) DeleteOffsets(stbl int, ports ...string) error {
	return dev.control(command.OP2(stbl, ports...))
}

// InsertOffsets assigns offset ports to a setup table.
func (dev *Device) InsertOffsets(stbl int, ports ...string) error {
	return dev.control(command.OP3(stbl, ports...))
}

// QueryOffsets queries the offset assignment of a setup table and returns the
// device's response packet.
func (dev *Device) QueryOffsets(stbl int) (packet.Packet, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.acq.Load() != nil {
		return nil, ErrAcquiring
	}

	if err := dev.sendCommand(command.OP5(stbl)); err != nil {
		return nil, err
	}

	return dev.readResponse(dev.cfg.ReadTimeout())
}

// SendRaw sends a pre-built command string verbatim, for device commands the
// structured encoder does not cover. Consuming the device's response, if
// any, is up to the caller via ReadResponse.
func (dev *Device) SendRaw(cmd string) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.acq.Load() != nil {
		return ErrAcquiring
	}

	return dev.sendCommand(cmd)
}

// ReadResponse reads and decodes one response packet, surfacing device errors
// as *packet.DeviceError.
func (dev *Device) ReadResponse() (packet.Packet, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.acq.Load() != nil {
		return nil, ErrAcquiring
	}

	return dev.readResponse(dev.cfg.ReadTimeout())
}

// control sends a control command and consumes its acknowledgement.
func (dev *Device) control(cmd string) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.acq.Load() != nil {
		return ErrAcquiring
	}

	_, err := dev.exec(cmd, dev.cfg.ReadTimeout())
	return err
}

// beginAcquisition validates the request, arms fast mode when the table asks
// for it, sizes the buffer and installs the new session. Caller holds mu.
func (dev *Device) beginAcquisition(stbl, nms int) (*acquisition, *SetupTable, error) {
	if dev.acq.Load() != nil {
		return nil, nil, ErrAcquiring
	}

	tbl, err := dev.lookupTable(stbl)
	if err != nil {
		return nil, nil, err
	}
	if nms <= 0 {
		nms = tbl.MessageSets
	}

	if tbl.Fast {
		if _, err := dev.exec(command.SD5(-1, 0), dev.cfg.ReadTimeout()); err != nil {
			return nil, nil, fmt.Errorf("arm fast mode: %w", err)
		}
	}

	// The session holds a reference to the buffer for its whole lifetime, so
	// growth must happen before the session is installed.
	dev.buf.grow(nms, rowBytes(tbl.Channels))

	timeout := dev.acquireTimeout(tbl)
	a := newAcquisition(dev.conn, &dev.metrics, tbl, nms, dev.buf, timeout)
	dev.acq.Store(a)
	dev.metrics.incAcqStartCount()

	dev.logger.Debug("acquisition started", "table", stbl, "messageSets", nms,
		"channels", tbl.Channels, "timeout", timeout)

	return a, tbl, nil
}

// finishAcquisition performs the completion handshake after the receive loop
// has filled all requested rows: it reads the completion acknowledgement,
// disarms fast mode when armed, and extracts the pressure matrix. Caller
// holds mu.
func (dev *Device) finishAcquisition(a *acquisition, tbl *SetupTable) ([][]float64, float64, error) {
	defer dev.clearSession(a)

	// Ordering contract: the completion acknowledgement is read strictly
	// after the last requested row.
	if err := dev.readCompletion(a.timeout); err != nil {
		a.state.Store(uint32(acqFaulted))
		dev.metrics.incAcqFaultCount()
		return nil, 0, err
	}

	if tbl.Fast {
		if _, err := dev.exec(command.SD5(-1, 1), dev.cfg.ReadTimeout()); err != nil {
			return nil, 0, fmt.Errorf("disarm fast mode: %w", err)
		}
	}

	rate := a.SampleRate()
	press := dev.pressures(a.nms, a.channels)

	dev.logger.Debug("acquisition completed", "table", a.table,
		"messageSets", a.nms, "sampleRate", rate)

	return press, rate, nil
}

func (dev *Device) clearSession(a *acquisition) {
	dev.acq.CompareAndSwap(a, nil)
}

func (dev *Device) lookupTable(stbl int) (*SetupTable, error) {
	if stbl < MinTable || stbl > MaxTable {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTable, stbl)
	}
	tbl, ok := dev.tables.Load(stbl)
	if !ok {
		return nil, fmt.Errorf("%w: table %d", ErrTableNotConfigured, stbl)
	}
	return tbl, nil
}

// acquireTimeout computes the adaptive receive timeout for a table: twice the
// worst-case expected inter-sample time, clamped to the configured floor.
func (dev *Device) acquireTimeout(tbl *SetupTable) time.Duration {
	t := 2 * tbl.expectedFrameTime()
	if floor := dev.cfg.AcquireTimeoutFloor(); t < floor {
		t = floor
	}
	return t
}

// readCompletion reads and validates the completion acknowledgement packet
// that terminates an acquisition run.
func (dev *Device) readCompletion(timeout time.Duration) error {
	if _, err := dev.readAck(timeout); err != nil {
		return fmt.Errorf("acquisition completion: %w", err)
	}
	return nil
}

// pressures extracts the channel pressure values from the first nms buffer
// rows. The leading 24 bytes of each row are per-sample metadata and are
// discarded; the trailing nchans×4 bytes are big-endian 32-bit floats widened
// to float64.
func (dev *Device) pressures(nms, nchans int) [][]float64 {
	press := make([][]float64, nms)
	for i := range press {
		row := dev.buf.row(i)
		vals := make([]float64, nchans)
		for j := 0; j < nchans; j++ {
			bits := binary.BigEndian.Uint32(row[rowMetaSize+4*j:])
			vals[j] = float64(math.Float32frombits(bits))
		}
		press[i] = vals
	}
	return press
}

// sendCommand writes one command string to the connection.
func (dev *Device) sendCommand(cmd string) error {
	if dev.closed.Load() {
		return ErrClosed
	}

	dev.logger.Debug("send command", "cmd", strings.TrimSuffix(cmd, command.Terminator))

	if _, err := dev.conn.Write([]byte(cmd)); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	dev.metrics.incCmdSendCount()

	return nil
}

// exec sends a command and consumes its acknowledgement.
func (dev *Device) exec(cmd string, timeout time.Duration) (*packet.Ack, error) {
	if err := dev.sendCommand(cmd); err != nil {
		return nil, err
	}
	return dev.readAck(timeout)
}

// readAck reads one packet under the given deadline and requires it to be an
// acknowledgement. Device errors surface as *packet.DeviceError.
func (dev *Device) readAck(timeout time.Duration) (*packet.Ack, error) {
	if err := dev.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	ack, err := packet.ReadAck(dev.conn)
	if err != nil {
		var devErr *packet.DeviceError
		if errors.As(err, &devErr) {
			dev.metrics.incDeviceErrCount()
		}
		return nil, err
	}

	dev.metrics.incAckRecvCount()
	if ack.Warn > 0 {
		dev.metrics.incWarnRecvCount()
		dev.logger.Warn("device warning", "code", ack.Warn)
	}

	return ack, nil
}

// readResponse reads one packet of any type under the given deadline,
// surfacing device errors as *packet.DeviceError.
func (dev *Device) readResponse(timeout time.Duration) (packet.Packet, error) {
	if err := dev.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	pkt, err := packet.ReadPacket(dev.conn, packet.RaiseDeviceError())
	if err != nil {
		var devErr *packet.DeviceError
		if errors.As(err, &devErr) {
			dev.metrics.incDeviceErrCount()
		}
		return nil, err
	}

	return pkt, nil
}
