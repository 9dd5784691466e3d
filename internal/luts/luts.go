// Package luts holds the two lookup tables the control policy runs on:
// a temperature to fan duty table and an ADC count to temperature table.
package luts

import (
	"errors"

	"golang.org/x/exp/slices"
)

var ErrEmpty = errors.New("table must not be empty")

// TempDutyPoint maps a temperature threshold to a fan duty fraction.
type TempDutyPoint struct {
	TempC float64
	Duty  float64
}

// TempToDuty is ordered ascending by temperature.
type TempToDuty []TempDutyPoint

// NewTempToDuty copies, sorts and validates the given points.
func NewTempToDuty(points []TempDutyPoint) (TempToDuty, error) {
	if len(points) == 0 {
		return nil, ErrEmpty
	}
	result := make(TempToDuty, len(points))
	copy(result, points)
	slices.SortFunc(result, func(a, b TempDutyPoint) int {
		switch {
		case a.TempC < b.TempC:
			return -1
		case a.TempC > b.TempC:
			return 1
		default:
			return 0
		}
	})
	return result, nil
}

// Thresholds returns the temperature column.
func (l TempToDuty) Thresholds() []float64 {
	result := make([]float64, len(l))
	for i, p := range l {
		result[i] = p.TempC
	}
	return result
}

// AdcTempPoint maps an ADC count to a temperature. Counts decrease as
// temperature increases on an NTC divider, hence the descending order.
type AdcTempPoint struct {
	Count int
	TempC float64
}

// AdcToTemp is ordered descending by ADC count.
type AdcToTemp []AdcTempPoint

// NewAdcToTemp copies, sorts and validates the given points.
func NewAdcToTemp(points []AdcTempPoint) (AdcToTemp, error) {
	if len(points) == 0 {
		return nil, ErrEmpty
	}
	result := make(AdcToTemp, len(points))
	copy(result, points)
	slices.SortFunc(result, func(a, b AdcTempPoint) int {
		return b.Count - a.Count
	})
	return result, nil
}

// TempAt converts an ADC count to an uncalibrated temperature. Counts at or
// beyond either table extreme clamp to that extreme, interior counts
// interpolate linearly between the bracketing pair.
func (l AdcToTemp) TempAt(count int) float64 {
	if count >= l[0].Count {
		return l[0].TempC
	}
	last := l[len(l)-1]
	if count <= last.Count {
		return last.TempC
	}
	for i := 0; i < len(l)-1; i++ {
		hi := l[i]
		lo := l[i+1]
		if lo.Count <= count && count <= hi.Count {
			ratio := float64(count-hi.Count) / float64(lo.Count-hi.Count)
			return hi.TempC + (lo.TempC-hi.TempC)*ratio
		}
	}
	return last.TempC
}
