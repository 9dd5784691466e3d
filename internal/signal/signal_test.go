package signal

import (
	"math"
	"testing"

	"github.com/adstech/opensink/internal/luts"
	"github.com/stretchr/testify/assert"
)

func TestFilterBypassOnNonPositiveCutoff(t *testing.T) {
	// GIVEN
	f := &Filter{}
	f.Update(100, 0.5, 0.005)

	// WHEN / THEN: fc <= 0 or dt <= 0 must return the input exactly
	assert.Equal(t, 42.0, f.Update(42, 0, 0.005))
	assert.Equal(t, 43.0, f.Update(43, -1, 0.005))
	assert.Equal(t, 44.0, f.Update(44, 0.5, 0))
	assert.Equal(t, 45.0, f.Update(45, 0.5, -0.1))
}

func TestFilterFirstSamplePrimes(t *testing.T) {
	// GIVEN
	f := &Filter{}

	// WHEN
	first := f.Update(1000, 0.5, 0.005)

	// THEN
	assert.Equal(t, 1000.0, first)
}

func TestFilterConvergesTowardsInput(t *testing.T) {
	// GIVEN
	f := &Filter{}
	f.Update(0, 10, 0.01)

	// WHEN
	var last float64
	for i := 0; i < 200; i++ {
		last = f.Update(100, 10, 0.01)
	}

	// THEN
	assert.InDelta(t, 100.0, last, 0.01)
}

func TestFilterStepResponseMatchesAlpha(t *testing.T) {
	// GIVEN
	f := &Filter{}
	f.Update(0, 1, 0.005)

	// WHEN
	got := f.Update(1, 1, 0.005)

	// THEN
	expected := Alpha(1, 0.005) * 1.0
	assert.InDelta(t, expected, got, 1e-12)
}

func TestAlphaClamped(t *testing.T) {
	assert.Equal(t, 0.0, Alpha(0, 0.005))
	assert.InDelta(t, 1.0, Alpha(1e9, 1), 1e-12)
	alpha := Alpha(0.5, 0.005)
	assert.Greater(t, alpha, 0.0)
	assert.Less(t, alpha, 1.0)
	assert.InDelta(t, 1.0-math.Exp(-2.0*math.Pi*0.5*0.005), alpha, 1e-12)
}

func TestCalibration(t *testing.T) {
	cal := Calibration{A: 2.0, B: -1.0}
	assert.Equal(t, 9.0, cal.Apply(5.0))
}

func TestCountsVoltsRoundtrip(t *testing.T) {
	assert.InDelta(t, VRef, CountsToVolts(AdcMax), 1e-12)
	assert.Equal(t, 0, VoltsToCounts(-1))
	assert.Equal(t, AdcMax, VoltsToCounts(VRef+1))
	assert.InDelta(t, 30000, float64(VoltsToCounts(CountsToVolts(30000))), 1.0)
}

func TestTemperatureCAppliesCalibrationAfterInterpolation(t *testing.T) {
	// GIVEN
	table, _ := luts.NewAdcToTemp([]luts.AdcTempPoint{
		{Count: 40000, TempC: 20.0},
		{Count: 20000, TempC: 60.0},
	})
	cal := Calibration{A: 2.0, B: 1.0}

	// WHEN: 30000 counts sits halfway, interpolating to 40 degC
	result := TemperatureC(30000, cal, table)

	// THEN: 40*2 + 1, not interpolation of calibrated endpoints weighting
	assert.InDelta(t, 81.0, result, 0.1)
}
