package dtcinitium

import (
	"sync/atomic"
)

// DeviceMetrics contains atomic metrics for a device connection.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type DeviceMetrics struct {
	// CmdSendCount indicates the number of commands sent to the device.
	CmdSendCount atomic.Uint64
	// AckRecvCount indicates the number of acknowledgement packets received.
	AckRecvCount atomic.Uint64
	// WarnRecvCount indicates the number of acknowledgements carrying a
	// non-zero warning code.
	WarnRecvCount atomic.Uint64
	// DeviceErrCount indicates the number of device-reported errors.
	DeviceErrCount atomic.Uint64

	// AcqStartCount indicates the number of acquisition sessions started.
	AcqStartCount atomic.Uint64
	// AcqFaultCount indicates the number of acquisition sessions that faulted.
	AcqFaultCount atomic.Uint64
	// SampleRecvCount indicates the total number of sample rows received.
	SampleRecvCount atomic.Uint64
}

func (m *DeviceMetrics) incCmdSendCount() {
	m.CmdSendCount.Add(1)
}

func (m *DeviceMetrics) incAckRecvCount() {
	m.AckRecvCount.Add(1)
}

func (m *DeviceMetrics) incWarnRecvCount() {
	m.WarnRecvCount.Add(1)
}

func (m *DeviceMetrics) incDeviceErrCount() {
	m.DeviceErrCount.Add(1)
}

func (m *DeviceMetrics) incAcqStartCount() {
	m.AcqStartCount.Add(1)
}

func (m *DeviceMetrics) incAcqFaultCount() {
	m.AcqFaultCount.Add(1)
}

func (m *DeviceMetrics) addSampleRecvCount(n uint64) {
	m.SampleRecvCount.Add(n)
}
