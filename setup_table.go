package dtcinitium

import "time"

// Setup table id bounds. The DTC Initium holds at most five setup tables.
const (
	MinTable = 1
	MaxTable = 5
)

// frameTime is the worst-case per-frame scan time used to estimate sample
// pacing from a table's frame count.
const frameTime = 4 * time.Millisecond

// SetupTable is one acquisition configuration profile stored on the device,
// keyed by table id 1..5. Re-configuring a table id replaces the previous
// entry; tables are never implicitly deleted.
type SetupTable struct {
	// Table is the setup table id, 1..5.
	Table int
	// FrameCount is the number of averaging frames per sample (nfr).
	FrameCount int
	// MessageSets is the default number of message sets per acquisition (nms).
	MessageSets int
	// MinSampleDelay is the minimum delay between samples in milliseconds (msd).
	MinSampleDelay int
	// TriggerMode is the trigger mode (trm).
	TriggerMode int
	// ScaleMode is the scale mode (scm); the wire value is fixed at 1.
	ScaleMode int
	// OutputComp is the output compensation flag (ocf); the wire value is
	// fixed at 2.
	OutputComp int
	// Ports holds the port range strings assigned to the table.
	Ports []string
	// Channels is the derived channel count: the total number of ports the
	// ranges expand to.
	Channels int
	// Fast reports whether fast acquisition mode is armed around sessions on
	// this table.
	Fast bool
}

// expectedFrameTime estimates the worst-case interval between two samples of
// the table: the larger of the frame scan time and the configured minimum
// sample delay.
//
// The receive timeout for an acquisition is twice this estimate, clamped to
// the configured floor, so a stalled device is detected without reconnect
// churn on slow tables.
func (t *SetupTable) expectedFrameTime() time.Duration {
	ft := time.Duration(t.FrameCount) * frameTime
	msd := time.Duration(t.MinSampleDelay) * time.Millisecond
	if msd > ft {
		return msd
	}
	return ft
}
