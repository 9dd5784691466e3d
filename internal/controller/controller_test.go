package controller

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adstech/opensink/internal/hal"
	"github.com/adstech/opensink/internal/luts"
	"github.com/adstech/opensink/internal/nvm"
)

type fakeConn struct {
	in  []string
	out []string
}

func (c *fakeConn) ReadLine() (string, bool) {
	if len(c.in) == 0 {
		return "", false
	}
	line := c.in[0]
	c.in = c.in[1:]
	return line, true
}

func (c *fakeConn) WriteLine(line string) {
	c.out = append(c.out, line)
}

func (c *fakeConn) push(lines ...string) {
	c.in = append(c.in, lines...)
}

func testTempDuty(t *testing.T) luts.TempToDuty {
	table, err := luts.NewTempToDuty([]luts.TempDutyPoint{
		{TempC: 40, Duty: 0.35},
		{TempC: 50, Duty: 0.50},
		{TempC: 60, Duty: 0.65},
		{TempC: 70, Duty: 0.80},
		{TempC: 75, Duty: 1.00},
	})
	assert.NoError(t, err)
	return table
}

func testAdcTemp(t *testing.T) luts.AdcToTemp {
	table, err := luts.NewAdcToTemp([]luts.AdcTempPoint{
		{Count: 64000, TempC: -40},
		{Count: 60934, TempC: -10},
		{Count: 43085, TempC: 25},
		{Count: 9338, TempC: 90},
	})
	assert.NoError(t, err)
	return table
}

type rig struct {
	ctrl  *Controller
	conn  *fakeConn
	clock *hal.SimClock
	board hal.Board
	vin   *hal.SimADC
	temp  *hal.SimADC
	pwm   *hal.SimPWM
	tach  *hal.SimDigitalIn
	store *nvm.MemStore
}

func newRig(t *testing.T) *rig {
	return newRigWithStore(t, nvm.NewMemStore(4096))
}

func newRigWithStore(t *testing.T, store *nvm.MemStore) *rig {
	clock := &hal.SimClock{}
	board, vin, temp, pwm, tach := hal.NewSimBoard(clock)
	conn := &fakeConn{}
	ctrl := New(Options{
		Board:        board,
		Conn:         conn,
		Store:        store,
		BootTempDuty: testTempDuty(t),
		BootAdcTemp:  testAdcTemp(t),
		Status:       func() (bool, bool) { return true, true },
	})
	return &rig{ctrl: ctrl, conn: conn, clock: clock, board: board,
		vin: vin, temp: temp, pwm: pwm, tach: tach, store: store}
}

// steps advances the clock in stepMs increments, running one loop iteration
// per increment.
func (r *rig) steps(count int, stepMs int64) {
	for i := 0; i < count; i++ {
		r.clock.Advance(stepMs)
		r.ctrl.Step()
	}
}

func (r *rig) loadEnable() bool {
	return r.board.LoadEnable.(*hal.SimDigitalOut).Value()
}

func TestCommandRoundtripThroughLoop(t *testing.T) {
	// GIVEN
	r := newRig(t)

	// WHEN
	r.conn.push("PING")
	r.ctrl.Step()

	// THEN
	assert.Equal(t, []string{"PONG"}, r.conn.out)
}

func TestControlTickDrivesFanPWM(t *testing.T) {
	// GIVEN: cool board, ramp disabled for determinism
	r := newRig(t)
	r.conn.push("SET RAMP_TIME_MS 0")
	r.ctrl.Step()

	// WHEN: past FAST_DT_MS
	r.steps(3, 5)

	// THEN: below the first threshold, MIN_FAN_DUTY commanded
	assert.Equal(t, 0.20, r.pwm.Duty())
	assert.True(t, r.loadEnable())
}

func TestHotTemperatureTripsLoad(t *testing.T) {
	// GIVEN
	r := newRig(t)
	r.temp.SetValue(9338) // 90C on the test thermistor table

	// WHEN
	r.steps(3, 5)

	// THEN: above LOAD_TRIP_C, load off, fan at full duty target
	assert.False(t, r.loadEnable())
	snap := r.ctrl.Snapshot()
	assert.InDelta(t, 90.0, snap.TempC, 0.1)
	assert.Equal(t, 4, snap.FanStep)
}

func TestBrokenSensorForcesLoadOff(t *testing.T) {
	// GIVEN: NTC open, apparent temperature far below the sentinel
	r := newRig(t)
	r.temp.SetValue(65535)

	// WHEN
	r.steps(3, 5)

	// THEN
	assert.False(t, r.loadEnable())
	assert.InDelta(t, -40.0, r.ctrl.Snapshot().TempC, 0.1)
}

func TestTelemetryEmittedAtConfiguredRate(t *testing.T) {
	// GIVEN
	r := newRig(t)
	r.conn.push("TELEM RATE 100")
	r.ctrl.Step()
	r.conn.out = nil

	// WHEN: 300ms pass in 5ms iterations
	r.steps(60, 5)

	// THEN: three HUMAN-format records
	var telem []string
	for _, line := range r.conn.out {
		if strings.HasPrefix(line, "VIN=") {
			telem = append(telem, line)
		}
	}
	assert.Len(t, telem, 3)
	assert.Contains(t, telem[0], "T=25.0C")
	assert.Contains(t, telem[0], "MODE=AUTO")
}

func TestQuietStopsTelemetry(t *testing.T) {
	// GIVEN: telemetry running
	r := newRig(t)
	r.conn.push("TELEM RATE 100")
	r.ctrl.Step()
	r.steps(30, 5)
	assert.NotEmpty(t, r.conn.out)

	// WHEN
	r.conn.push("QUIET")
	r.ctrl.Step()
	r.conn.out = nil
	r.steps(60, 5)

	// THEN: nothing but command responses, and there were none pending
	assert.Empty(t, r.conn.out)
}

func TestSaveAndRestoreAcrossBoots(t *testing.T) {
	// GIVEN: a tuned controller
	store := nvm.NewMemStore(4096)
	r := newRigWithStore(t, store)
	r.conn.push("SET HYST_C 7.5", "SAVE")
	r.ctrl.Step()
	r.ctrl.Step()
	assert.Contains(t, r.conn.out, "NVM_SAVED_ALL")

	// WHEN: a new controller boots from the same store
	r2 := newRigWithStore(t, store)
	r2.conn.push("GET PARAMS")
	r2.ctrl.Step()

	// THEN
	assert.Contains(t, r2.conn.out, "HYST_C=7.5")
}

func TestDefaultsRestoresParamsAndBootLuts(t *testing.T) {
	// GIVEN: modified param and LUT
	r := newRig(t)
	r.conn.push(
		"SET HYST_C 9",
		"SET LUT TEMP_TO_DUTY BEGIN 1",
		"0,55,0.5",
		"SET LUT TEMP_TO_DUTY END",
	)
	for i := 0; i < 4; i++ {
		r.ctrl.Step()
	}
	assert.Len(t, r.ctrl.TempDutyLUT(), 1)

	// WHEN
	r.conn.push("DEFAULTS")
	r.ctrl.Step()

	// THEN
	assert.Len(t, r.ctrl.TempDutyLUT(), 5)
	r.conn.out = nil
	r.conn.push("GET PARAMS")
	r.ctrl.Step()
	assert.Contains(t, r.conn.out, "HYST_C=5")
}

func TestRebootStopsTheLoop(t *testing.T) {
	// GIVEN
	r := newRig(t)

	// WHEN
	r.conn.push("REBOOT")
	alive := r.ctrl.Step()

	// THEN: acknowledged, loop signalled to stop
	assert.Equal(t, []string{"OK"}, r.conn.out)
	assert.False(t, alive)
}

func TestManualFanOverrideThroughProtocol(t *testing.T) {
	// GIVEN
	r := newRig(t)
	r.conn.push("SET RAMP_TIME_MS 0", "FAN DUTY 0.42")
	r.ctrl.Step()
	r.ctrl.Step()

	// WHEN
	r.steps(3, 5)

	// THEN: temperature no longer drives the duty
	assert.Equal(t, 0.42, r.pwm.Duty())
	assert.True(t, r.ctrl.Snapshot().Manual)

	// WHEN: back to auto
	r.conn.push("FAN AUTO")
	r.ctrl.Step()
	r.steps(3, 5)
	assert.Equal(t, 0.20, r.pwm.Duty())
}

func TestSetParamErrorLeavesValueIntact(t *testing.T) {
	// GIVEN
	r := newRig(t)

	// WHEN: out-of-range write
	r.conn.push("SET HYST_C 9999")
	r.ctrl.Step()

	// THEN
	assert.Equal(t, []string{"ERR 400 RANGE"}, r.conn.out)
	r.conn.out = nil
	r.conn.push("GET PARAMS")
	r.ctrl.Step()
	assert.Contains(t, r.conn.out, "HYST_C=5")
}

func TestParseMajorMinor(t *testing.T) {
	major, minor := parseMajorMinor("1.3.1")
	assert.Equal(t, 1, major)
	assert.Equal(t, 3, minor)

	major, minor = parseMajorMinor("2.4-beta")
	assert.Equal(t, 2, major)
	assert.Equal(t, 4, minor)
}
