package telemetry

import (
	"fmt"
	"math"
	"time"
)

// UpdateRate selects how often a subscriber receives frames.
// The zero value is Native.
type UpdateRate struct {
	hz float64
}

// Native delivers every source tick.
var Native = UpdateRate{}

// Max throttles delivery to at most hz frames per second of source time.
func Max(hz float64) UpdateRate { return UpdateRate{hz: hz} }

// IsNative reports whether every tick is delivered.
func (r UpdateRate) IsNative() bool { return r.hz == 0 }

// Hz returns the throttle frequency, or 0 for Native.
func (r UpdateRate) Hz() float64 { return r.hz }

// Validate rejects non-positive or non-finite Max rates.
func (r UpdateRate) Validate() error {
	if r.hz == 0 {
		return nil
	}
	if r.hz < 0 || math.IsNaN(r.hz) || math.IsInf(r.hz, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidUpdateRate, r.hz)
	}
	return nil
}

// Normalize collapses a Max rate at or above the source rate to Native.
func (r UpdateRate) Normalize(sourceHz float64) UpdateRate {
	if r.hz > 0 && sourceHz > 0 && r.hz >= sourceHz {
		return Native
	}
	return r
}

// Interval returns the minimum source-time gap between deliveries.
func (r UpdateRate) Interval() time.Duration {
	if r.hz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / r.hz)
}

func (r UpdateRate) String() string {
	if r.IsNative() {
		return "native"
	}
	return fmt.Sprintf("max(%gHz)", r.hz)
}
