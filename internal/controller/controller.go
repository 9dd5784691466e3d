// Package controller ties the control engine together: it owns the parameter
// set, the lookup tables, the filter/fan/load state and the persistence
// store, implements the command protocol backend, and drives everything from
// a single cooperative loop.
package controller

import (
	"sync"
	"time"

	"github.com/qdm12/reprint"

	"github.com/adstech/opensink/internal/fanctl"
	"github.com/adstech/opensink/internal/hal"
	"github.com/adstech/opensink/internal/loadguard"
	"github.com/adstech/opensink/internal/luts"
	"github.com/adstech/opensink/internal/nvm"
	"github.com/adstech/opensink/internal/params"
	"github.com/adstech/opensink/internal/protocol"
	"github.com/adstech/opensink/internal/signal"
	"github.com/adstech/opensink/internal/telemetry"
	"github.com/adstech/opensink/internal/ui"
)

const FirmwareVersion = "1.3.1"

// Options configures a Controller.
type Options struct {
	Board        hal.Board
	Conn         protocol.LineConn
	Store        nvm.Store
	FallbackPath string
	BootTempDuty luts.TempToDuty
	BootAdcTemp  luts.AdcToTemp
	// Status reports transport link state for STATUS?. Optional.
	Status func() (console bool, data bool)
	// StartupBlink enables the bounded LED version-blink sequence before
	// the loop starts.
	StartupBlink bool
}

// Controller is the single owner of all mutable engine state. Every method
// except Snapshot and FanRPM must be called from the control loop goroutine.
type Controller struct {
	board hal.Board
	conn  protocol.LineConn
	store nvm.Store

	fallbackPath string
	statusFn     func() (bool, bool)
	startupBlink bool
	sleep        func(time.Duration)

	parameters *params.Set
	adcTemp    luts.AdcToTemp
	fan        *fanctl.Controller
	guard      *loadguard.Guard
	server     *protocol.Server

	bootTempDuty luts.TempToDuty
	bootAdcTemp  luts.AdcToTemp

	vinFilter  signal.Filter
	tempFilter signal.Filter

	lastTickMs int64
	tempC      float64
	vinV       float64
	tempAdcV   float64

	control   periodicTask
	telemetry periodicTask

	rebootRequested bool

	snapMu sync.Mutex
	snap   telemetry.Snapshot
}

func New(opts Options) *Controller {
	nowMs := opts.Board.Clock.NowMillis()

	c := &Controller{
		board:        opts.Board,
		conn:         opts.Conn,
		store:        opts.Store,
		fallbackPath: opts.FallbackPath,
		statusFn:     opts.Status,
		startupBlink: opts.StartupBlink,
		sleep:        time.Sleep,
		parameters:   params.NewSet(),
		adcTemp:      opts.BootAdcTemp,
		guard:        loadguard.New(),
		bootTempDuty: reprint.This(opts.BootTempDuty).(luts.TempToDuty),
		bootAdcTemp:  reprint.This(opts.BootAdcTemp).(luts.AdcToTemp),
		lastTickMs:   nowMs,
	}
	c.fan = fanctl.New(opts.BootTempDuty, opts.Board.FanTach.Value(), nowMs)
	c.server = protocol.NewServer(opts.Conn, c)
	c.control = periodicTask{
		period:  func() int { return c.parameters.Millis("FAST_DT_MS") },
		lastRun: nowMs,
		run:     c.tick,
	}
	c.telemetry = periodicTask{
		period:  func() int { return c.parameters.Millis("TELEM_RATE_MS") },
		lastRun: nowMs,
		run:     c.emitTelemetry,
	}
	c.tempC = 25.0
	c.loadSettings()
	return c
}

// loadSettings restores persisted state: the store's blob first, then the
// plain-JSON fallback file, then compiled-in defaults.
func (c *Controller) loadSettings() {
	settings, err := nvm.Load(c.store)
	if err != nil && c.fallbackPath != "" {
		settings, err = nvm.LoadFallbackFile(c.fallbackPath)
	}
	if err != nil || settings == nil {
		ui.Info("No persisted settings found, using defaults")
		return
	}
	c.applySettings(settings)
	ui.Info("Persisted settings restored")
}

func (c *Controller) applySettings(settings *nvm.Settings) {
	c.parameters.Import(settings.Params)
	if len(settings.TempToDuty) > 0 {
		points := make([]luts.TempDutyPoint, 0, len(settings.TempToDuty))
		for _, row := range settings.TempToDuty {
			points = append(points, luts.TempDutyPoint{TempC: row[0], Duty: row[1]})
		}
		if table, err := luts.NewTempToDuty(points); err == nil {
			c.fan.SetTable(table)
		}
	}
	if len(settings.AdcToTemp) > 0 {
		points := make([]luts.AdcTempPoint, 0, len(settings.AdcToTemp))
		for _, row := range settings.AdcToTemp {
			points = append(points, luts.AdcTempPoint{Count: int(row[0]), TempC: row[1]})
		}
		if table, err := luts.NewAdcToTemp(points); err == nil {
			c.adcTemp = table
		}
	}
}

func (c *Controller) fanConfig() fanctl.Config {
	return fanctl.Config{
		MinFanDuty:    c.parameters.Float("MIN_FAN_DUTY"),
		HystC:         c.parameters.Float("HYST_C"),
		RampTimeMs:    c.parameters.Millis("RAMP_TIME_MS"),
		RampStepMs:    c.parameters.Millis("RAMP_STEP_MS"),
		CheckMinDuty:  c.parameters.Float("FAN_CHECK_MIN_DUTY"),
		SpinupMs:      c.parameters.Millis("FAN_SPINUP_MS"),
		TachTimeoutMs: c.parameters.Millis("FAN_TACH_TIMEOUT_MS"),
	}
}

func (c *Controller) guardConfig() loadguard.Config {
	return loadguard.Config{
		TripC:     c.parameters.Float("LOAD_TRIP_C"),
		HystC:     c.parameters.Float("HYST_C"),
		TripV:     c.parameters.Float("LOAD_TRIP_V"),
		HystV:     c.parameters.Float("HYST_V"),
		BypassVin: c.parameters.Float("BYPASS_VIN_CUTOFF") >= 0.5,
		BlinkMs:   c.parameters.Millis("LED_BLINK_MS"),
	}
}

func (c *Controller) tempCal() signal.Calibration {
	return signal.Calibration{A: c.parameters.Float("TEMP_CAL_A"), B: c.parameters.Float("TEMP_CAL_B")}
}

func (c *Controller) vinCal() signal.Calibration {
	return signal.Calibration{A: c.parameters.Float("VIN_CAL_A"), B: c.parameters.Float("VIN_CAL_B")}
}

// tick runs one control iteration: acquisition, filtering, conversion, fan
// policy, tach fault detection and the load interlock, then drives the
// outputs and publishes a fresh snapshot.
func (c *Controller) tick(nowMs int64) {
	dtS := float64(nowMs-c.lastTickMs) / 1000.0
	c.lastTickMs = nowMs

	rawVin := float64(c.board.VinADC.Value())
	rawTemp := float64(c.board.TempADC.Value())

	vinF := c.vinFilter.Update(rawVin, c.parameters.Float("FC_VIN_HZ"), dtS)
	tempF := c.tempFilter.Update(rawTemp, c.parameters.Float("FC_TEMP_HZ"), dtS)

	c.vinV = signal.VinV(vinF, c.vinCal())
	c.tempAdcV = c.tempCal().Apply(signal.CountsToVolts(tempF))
	c.tempC = signal.TemperatureC(tempF, c.tempCal(), c.adcTemp)

	fanCfg := c.fanConfig()
	duty := c.fan.Tick(c.tempC, c.board.FanTach.Value(), nowMs, fanCfg)
	c.board.FanPWM.SetDuty(duty)

	out := c.guard.Tick(loadguard.Inputs{
		TempC:      c.tempC,
		VinV:       c.vinV,
		FanFault:   c.fan.Fault(),
		FanChecked: c.fan.Checked(fanCfg),
		NowMs:      nowMs,
	}, c.guardConfig())
	c.board.LoadEnable.Set(out.LoadEnabled)
	c.board.LED.Set(out.LED)

	c.publishSnapshot(out)
}

func (c *Controller) publishSnapshot(out loadguard.Outputs) {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	c.snap = telemetry.Snapshot{
		VinV:        c.vinV,
		TempAdcV:    c.tempAdcV,
		TempC:       c.tempC,
		FanStep:     c.fan.Step(),
		DutyCmd:     c.fan.DutyCmd(),
		LoadEnabled: out.LoadEnabled,
		PowerGood:   c.board.PowerGood.Value(),
		Manual:      c.fan.Manual(),
	}
}

// Snapshot returns a copy of the last published telemetry sample. Safe to
// call from other goroutines.
func (c *Controller) Snapshot() telemetry.Snapshot {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	return c.snap
}

// FanRPM reports the current tach-derived fan speed estimate.
func (c *Controller) FanRPM() float64 {
	return c.fan.RPM()
}

func (c *Controller) emitTelemetry(int64) {
	c.conn.WriteLine(telemetry.Format(c.parameters.Enum("TELEM_FORMAT"), c.Snapshot()))
}
