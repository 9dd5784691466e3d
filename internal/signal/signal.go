// Package signal turns raw ADC counts into calibrated physical values:
// single-pole IIR smoothing, counts to volts conversion, affine calibration
// and thermistor table lookup.
package signal

import (
	"math"

	"github.com/adstech/opensink/internal/luts"
)

const (
	VRef   = 3.3
	AdcMax = 65535
)

// Alpha computes the smoothing coefficient of a single-pole exponential
// low-pass with cutoff fcHz sampled every dtS seconds, clamped to [0..1].
func Alpha(fcHz, dtS float64) float64 {
	alpha := 1.0 - math.Exp(-2.0*math.Pi*fcHz*dtS)
	if alpha < 0.0 {
		return 0.0
	}
	if alpha > 1.0 {
		return 1.0
	}
	return alpha
}

// Filter is a single-pole IIR low-pass holding one previous value per channel.
type Filter struct {
	prev   float64
	primed bool
}

// Update feeds one sample. When fcHz or dtS is not positive the filter is
// bypassed and the raw input is returned unchanged, so there is no startup
// lag artifact. The first sample primes the filter.
func (f *Filter) Update(x, fcHz, dtS float64) float64 {
	if fcHz <= 0 || dtS <= 0 || !f.primed {
		f.prev = x
		f.primed = true
		return x
	}
	f.prev += Alpha(fcHz, dtS) * (x - f.prev)
	return f.prev
}

// Value returns the current filtered value.
func (f *Filter) Value() float64 {
	return f.prev
}

// Reset discards the filter state so the next sample re-primes it.
func (f *Filter) Reset() {
	f.prev = 0
	f.primed = false
}

// Calibration is an affine per-channel correction y = A*x + B.
type Calibration struct {
	A float64
	B float64
}

func (c Calibration) Apply(x float64) float64 {
	return c.A*x + c.B
}

// CountsToVolts converts ADC counts to volts against the full-scale reference.
func CountsToVolts(counts float64) float64 {
	return counts * VRef / AdcMax
}

// VoltsToCounts maps volts back to an equivalent ADC count, clamped to the
// converter range.
func VoltsToCounts(v float64) int {
	counts := v / VRef * AdcMax
	if counts < 0 {
		return 0
	}
	if counts > AdcMax {
		return AdcMax
	}
	return int(counts)
}

// TemperatureC converts filtered temperature-channel counts to degrees
// Celsius: counts to volts, back to an equivalent count, thermistor table
// interpolation, then the affine temperature calibration applied to the
// interpolated result.
func TemperatureC(filteredCounts float64, cal Calibration, table luts.AdcToTemp) float64 {
	volts := CountsToVolts(filteredCounts)
	counts := VoltsToCounts(volts)
	return cal.Apply(table.TempAt(counts))
}

// VinV converts filtered voltage-channel counts to calibrated input volts.
func VinV(filteredCounts float64, cal Calibration) float64 {
	return cal.Apply(CountsToVolts(filteredCounts))
}
