// Package monitor hosts the two input-sampling loops: a high-frequency
// pointer tracker and a lower-frequency behavior analyzer. Both are
// read-only against the OS input subsystem and publish derived
// telemetry on the notification bus; neither touches persistent state.
package monitor

// PointerState is one sample of the pointer position and primary
// button.
type PointerState struct {
	X           float64
	Y           float64
	LeftPressed bool
}

// Source provides raw input samples. Implementations poll the OS input
// subsystem.
type Source interface {
	// Pointer returns the current pointer state.
	Pointer() PointerState
	// Keys returns the names of currently pressed keys.
	Keys() []string
}

// NullSource reports no input. It stands in on platforms without a
// global input hook and in tests.
type NullSource struct{}

func (NullSource) Pointer() PointerState { return PointerState{} }
func (NullSource) Keys() []string        { return nil }
