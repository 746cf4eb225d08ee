package dtcinitium

import (
	"errors"
	"sync"
	"time"

	"github.com/tunelipt/dtcinitium/logger"
)

// DefaultPort is the fixed TCP service port of the DTC Initium.
const DefaultPort = 8400

// ConnectionConfig represents the configuration parameters for a DTC Initium
// connection.
type ConnectionConfig struct {
	mu sync.RWMutex

	// host specifies the IP address or host name of the DTC Initium.
	host string

	// port specifies the TCP port number of the device command connection.
	// Defaults to 8400, the device's fixed service port.
	port int

	// readTimeout is the steady-state read deadline applied to command
	// handshake responses outside acquisition.
	// Defaults to 1 second.
	readTimeout time.Duration

	// handshakeTimeout is the read deadline used while the connection is
	// being bootstrapped (scanner configuration and unit selection replies).
	// Defaults to 3 seconds.
	handshakeTimeout time.Duration

	// acquireTimeoutFloor is the minimum adaptive receive timeout applied
	// during acquisition, regardless of how fast the setup table promises
	// samples. Defaults to 300 milliseconds.
	acquireTimeoutFloor time.Duration

	// bufferRows is the initial sample capacity of the acquisition buffer.
	// Defaults to 30000 rows.
	bufferRows int

	// bufferChannels is the channel capacity the acquisition buffer rows are
	// initially sized for. Defaults to 512 channels.
	bufferChannels int

	// unitType is the engineering unit selected with the PC4 command during
	// bootstrap. Defaults to 3.
	unitType int

	// logger provides a logger instance for connection and acquisition events.
	logger logger.Logger
}

// NewConnectionConfig creates a connection configuration for the DTC Initium
// at the given host, applying the provided functional options.
//
// See the WithXXX functions for the available options and their defaults.
func NewConnectionConfig(host string, opts ...ConnOption) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		port:                DefaultPort,
		readTimeout:         1 * time.Second,
		handshakeTimeout:    3 * time.Second,
		acquireTimeoutFloor: 300 * time.Millisecond,
		bufferRows:          30000,
		bufferChannels:      512,
		unitType:            3,
		logger:              logger.GetLogger(),
	}

	if err := withHost(host).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func (cfg *ConnectionConfig) Host() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.host
}

func (cfg *ConnectionConfig) Port() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.port
}

func (cfg *ConnectionConfig) ReadTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.readTimeout
}

func (cfg *ConnectionConfig) HandshakeTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.handshakeTimeout
}

func (cfg *ConnectionConfig) AcquireTimeoutFloor() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.acquireTimeoutFloor
}

func (cfg *ConnectionConfig) BufferRows() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.bufferRows
}

func (cfg *ConnectionConfig) BufferChannels() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.bufferChannels
}

func (cfg *ConnectionConfig) UnitType() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.unitType
}

func (cfg *ConnectionConfig) Logger() logger.Logger {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.logger
}

// ConnOption represents a functional option for configuring a ConnectionConfig.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc struct {
	name      string
	applyFunc func(*ConnectionConfig) error
}

func (c *connOptFunc) apply(cfg *ConnectionConfig) error { return c.applyFunc(cfg) }

func newConnOptFunc(name string, f func(*ConnectionConfig) error) *connOptFunc {
	return &connOptFunc{name: name, applyFunc: f}
}

// withHost sets the host of the DTC Initium.
// An error is returned if the host is empty or the configuration is nil.
func withHost(host string) ConnOption {
	return newConnOptFunc("withHost", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if host == "" {
			return errors.New("host is empty")
		}
		cfg.host = host

		return nil
	})
}

// WithPort sets the TCP port number of the device command connection.
// An error is returned if the port is outside [1, 65535] or the configuration is nil.
//
// The default value is 8400.
func WithPort(port int) ConnOption {
	return newConnOptFunc("WithPort", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if port < 1 || port > 65535 {
			return errors.New("port is out of range [1, 65535]")
		}
		cfg.port = port

		return nil
	})
}

// WithReadTimeout sets the steady-state read deadline for command handshake
// responses. An error is returned if the timeout is outside [100ms, 120s] or
// the configuration is nil.
//
// The default value is 1 second.
func WithReadTimeout(val time.Duration) ConnOption {
	return newConnOptFunc("WithReadTimeout", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if val < 100*time.Millisecond || val > 120*time.Second {
			return errors.New("read timeout out of range [100ms, 120s]")
		}
		cfg.readTimeout = val

		return nil
	})
}

// WithHandshakeTimeout sets the read deadline used during connection
// bootstrap. An error is returned if the timeout is outside [100ms, 120s] or
// the configuration is nil.
//
// The default value is 3 seconds.
func WithHandshakeTimeout(val time.Duration) ConnOption {
	return newConnOptFunc("WithHandshakeTimeout", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if val < 100*time.Millisecond || val > 120*time.Second {
			return errors.New("handshake timeout out of range [100ms, 120s]")
		}
		cfg.handshakeTimeout = val

		return nil
	})
}

// WithAcquireTimeoutFloor sets the minimum adaptive receive timeout used
// during acquisition. An error is returned if the floor is outside
// [1ms, 60s] or the configuration is nil.
//
// The default value is 300 milliseconds.
func WithAcquireTimeoutFloor(val time.Duration) ConnOption {
	return newConnOptFunc("WithAcquireTimeoutFloor", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if val < time.Millisecond || val > 60*time.Second {
			return errors.New("acquire timeout floor out of range [1ms, 60s]")
		}
		cfg.acquireTimeoutFloor = val

		return nil
	})
}

// WithBufferRows sets the initial sample capacity of the acquisition buffer.
// The buffer grows on demand, so a smaller initial capacity only defers the
// allocation. An error is returned if rows is not positive or the
// configuration is nil.
//
// The default value is 30000 rows.
func WithBufferRows(rows int) ConnOption {
	return newConnOptFunc("WithBufferRows", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if rows < 1 {
			return errors.New("buffer rows must be positive")
		}
		cfg.bufferRows = rows

		return nil
	})
}

// WithBufferChannels sets the channel capacity the acquisition buffer rows
// are initially sized for. An error is returned if channels is not positive
// or the configuration is nil.
//
// The default value is 512 channels.
func WithBufferChannels(channels int) ConnOption {
	return newConnOptFunc("WithBufferChannels", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if channels < 1 {
			return errors.New("buffer channels must be positive")
		}
		cfg.bufferChannels = channels

		return nil
	})
}

// WithUnitType sets the engineering unit selected during bootstrap.
// An error is returned if the configuration is nil.
//
// The default value is 3.
func WithUnitType(unx int) ConnOption {
	return newConnOptFunc("WithUnitType", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		cfg.unitType = unx

		return nil
	})
}

// WithLogger sets the logger instance used for connection and acquisition
// events. An error is returned if the logger is nil or the configuration is nil.
//
// The default is the package-level logger.
func WithLogger(l logger.Logger) ConnOption {
	return newConnOptFunc("WithLogger", func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return ErrConfigNil
		}

		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
