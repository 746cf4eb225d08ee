package dtcinitium

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunelipt/dtcinitium/logger"
)

func TestNewConnectionConfig_Defaults(t *testing.T) {
	cfg, err := NewConnectionConfig("192.168.129.7")
	require.NoError(t, err)

	assert.Equal(t, "192.168.129.7", cfg.Host())
	assert.Equal(t, DefaultPort, cfg.Port())
	assert.Equal(t, 1*time.Second, cfg.ReadTimeout())
	assert.Equal(t, 3*time.Second, cfg.HandshakeTimeout())
	assert.Equal(t, 300*time.Millisecond, cfg.AcquireTimeoutFloor())
	assert.Equal(t, 30000, cfg.BufferRows())
	assert.Equal(t, 512, cfg.BufferChannels())
	assert.Equal(t, 3, cfg.UnitType())
	assert.NotNil(t, cfg.Logger())
}

func TestNewConnectionConfig_Options(t *testing.T) {
	l := logger.NewSlog(logger.ErrorLevel, false)

	cfg, err := NewConnectionConfig("10.0.0.2",
		WithPort(9000),
		WithReadTimeout(2*time.Second),
		WithHandshakeTimeout(5*time.Second),
		WithAcquireTimeoutFloor(100*time.Millisecond),
		WithBufferRows(1000),
		WithBufferChannels(64),
		WithUnitType(5),
		WithLogger(l),
	)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port())
	assert.Equal(t, 2*time.Second, cfg.ReadTimeout())
	assert.Equal(t, 5*time.Second, cfg.HandshakeTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.AcquireTimeoutFloor())
	assert.Equal(t, 1000, cfg.BufferRows())
	assert.Equal(t, 64, cfg.BufferChannels())
	assert.Equal(t, 5, cfg.UnitType())
	assert.Equal(t, l, cfg.Logger())
}

func TestNewConnectionConfig_Validation(t *testing.T) {
	tests := []struct {
		description string
		host        string
		opts        []ConnOption
	}{
		{"empty host", "", nil},
		{"port zero", "10.0.0.2", []ConnOption{WithPort(0)}},
		{"port too large", "10.0.0.2", []ConnOption{WithPort(70000)}},
		{"read timeout too small", "10.0.0.2", []ConnOption{WithReadTimeout(time.Millisecond)}},
		{"read timeout too large", "10.0.0.2", []ConnOption{WithReadTimeout(200 * time.Second)}},
		{"handshake timeout too small", "10.0.0.2", []ConnOption{WithHandshakeTimeout(time.Millisecond)}},
		{"acquire floor too small", "10.0.0.2", []ConnOption{WithAcquireTimeoutFloor(time.Microsecond)}},
		{"acquire floor too large", "10.0.0.2", []ConnOption{WithAcquireTimeoutFloor(2 * time.Minute)}},
		{"zero buffer rows", "10.0.0.2", []ConnOption{WithBufferRows(0)}},
		{"zero buffer channels", "10.0.0.2", []ConnOption{WithBufferChannels(0)}},
		{"nil logger", "10.0.0.2", []ConnOption{WithLogger(nil)}},
	}

	for _, test := range tests {
		_, err := NewConnectionConfig(test.host, test.opts...)
		assert.Error(t, err, test.description)
	}
}
