// Package fanctl implements the fan control policy: table-driven step
// selection with one-step hysteresis, linear duty ramping, manual override
// and tachometer based fault detection.
package fanctl

import (
	"github.com/adstech/opensink/internal/luts"
	"github.com/asecurityteam/rolling"
)

// A fan tach line yields two pulses per revolution, four level transitions.
const edgesPerRevolution = 4

const tachWindowSize = 8

// Config carries the per-tick policy parameters.
type Config struct {
	MinFanDuty    float64
	HystC         float64
	RampTimeMs    int
	RampStepMs    int
	CheckMinDuty  float64
	SpinupMs      int
	TachTimeoutMs int
}

// Controller holds the fan control state between ticks. It is owned by the
// control loop and not safe for concurrent use.
type Controller struct {
	table luts.TempToDuty

	step       int
	dutyTarget float64
	dutyCmd    float64

	rampStartDuty float64
	rampTarget    float64
	rampStartMs   int64
	lastRampMs    int64

	manual bool

	fault         bool
	spinRequestMs int64 // -1 while no spin-up is pending
	lastTachLevel bool
	lastTachEdge  int64

	tachIntervals *rolling.PointPolicy
}

func New(table luts.TempToDuty, tachLevel bool, nowMs int64) *Controller {
	return &Controller{
		table:         table,
		lastTachLevel: tachLevel,
		lastTachEdge:  nowMs,
		lastRampMs:    nowMs,
		rampStartMs:   nowMs,
		spinRequestMs: -1,
		tachIntervals: rolling.NewPointPolicy(rolling.NewWindow(tachWindowSize)),
	}
}

// SetTable swaps in a new temp to duty table. The step index restarts from
// the bottom; the next tick re-selects the right step for the current
// temperature.
func (c *Controller) SetTable(table luts.TempToDuty) {
	c.table = table
	c.step = 0
}

func (c *Controller) Table() luts.TempToDuty { return c.table }
func (c *Controller) Step() int              { return c.step }
func (c *Controller) DutyTarget() float64    { return c.dutyTarget }
func (c *Controller) DutyCmd() float64       { return c.dutyCmd }
func (c *Controller) Manual() bool           { return c.manual }
func (c *Controller) Fault() bool            { return c.fault }

// Checked reports whether the fault detector currently watches the tach line.
func (c *Controller) Checked(cfg Config) bool {
	return c.rampTarget >= cfg.CheckMinDuty || c.dutyCmd >= cfg.CheckMinDuty || c.manual
}

// Auto returns the fan to table-driven policy mode.
func (c *Controller) Auto() {
	c.manual = false
}

// ManualDuty engages the manual override and ramps towards the given duty.
func (c *Controller) ManualDuty(duty float64, nowMs int64, cfg Config) {
	c.manual = true
	duty = clamp(duty, 0.0, 1.0)
	c.rampStartDuty = c.dutyCmd
	c.rampTarget = duty
	c.rampStartMs = nowMs
	if duty >= cfg.CheckMinDuty {
		c.spinRequestMs = nowMs
	} else {
		c.spinRequestMs = -1
	}
}

// Tick runs one control iteration: step selection (unless overridden), ramp
// service, tach edge bookkeeping and fault evaluation. It returns the duty to
// command on the PWM output, clamped to [0..1].
func (c *Controller) Tick(tempC float64, tachLevel bool, nowMs int64, cfg Config) float64 {
	if !c.manual {
		c.updatePolicy(tempC, cfg)
		c.setTarget(c.dutyTarget, nowMs, cfg)
	}
	c.serviceRamp(nowMs, cfg)
	c.observeTach(tachLevel, nowMs)
	c.evaluateFault(nowMs, cfg)
	return c.dutyCmd
}

// updatePolicy selects the table step for the given temperature. The index
// climbs monotonically while the temperature is at or above the next
// threshold and drops at most one step per tick once the temperature falls
// below the current threshold by the hysteresis band.
func (c *Controller) updatePolicy(tempC float64, cfg Config) {
	steps := c.table
	if c.step >= len(steps) {
		c.step = len(steps) - 1
	}

	if tempC < steps[0].TempC {
		c.step = 0
		c.dutyTarget = cfg.MinFanDuty
		return
	}

	for c.step < len(steps)-1 && tempC >= steps[c.step+1].TempC {
		c.step++
	}

	if c.step > 0 && tempC <= steps[c.step].TempC-cfg.HystC {
		c.step--
	}

	c.dutyTarget = steps[c.step].Duty
}

// setTarget starts a new ramp if the target changed and tracks the spin-up
// request time for the fault detector.
func (c *Controller) setTarget(target float64, nowMs int64, cfg Config) {
	target = clamp(target, 0.0, 1.0)
	if target != c.rampTarget {
		c.rampStartDuty = c.dutyCmd
		c.rampTarget = target
		c.rampStartMs = nowMs
	}
	if target >= cfg.CheckMinDuty {
		if c.spinRequestMs < 0 {
			c.spinRequestMs = nowMs
		}
	} else {
		c.spinRequestMs = -1
	}
}

// serviceRamp advances the commanded duty along the linear ramp, recomputing
// at most once per RampStepMs. RampTimeMs of zero jumps immediately.
func (c *Controller) serviceRamp(nowMs int64, cfg Config) {
	if cfg.RampTimeMs <= 0 {
		c.dutyCmd = c.rampTarget
	} else if nowMs-c.lastRampMs >= int64(cfg.RampStepMs) {
		c.lastRampMs = nowMs
		elapsed := nowMs - c.rampStartMs
		switch {
		case elapsed <= 0:
			c.dutyCmd = c.rampStartDuty
		case elapsed >= int64(cfg.RampTimeMs):
			c.dutyCmd = c.rampTarget
		default:
			frac := float64(elapsed) / float64(cfg.RampTimeMs)
			c.dutyCmd = c.rampStartDuty + frac*(c.rampTarget-c.rampStartDuty)
		}
	}
	c.dutyCmd = clamp(c.dutyCmd, 0.0, 1.0)
}

func (c *Controller) observeTach(level bool, nowMs int64) {
	if level == c.lastTachLevel {
		return
	}
	c.lastTachLevel = level
	if interval := nowMs - c.lastTachEdge; interval > 0 {
		c.tachIntervals.Append(float64(interval))
	}
	c.lastTachEdge = nowMs
}

// evaluateFault checks for a stuck fan: once the spin-up grace window has
// passed, silence on the tach line longer than the timeout is a fault.
// Leaving the checked regime clears the fault and the spin-up timer.
func (c *Controller) evaluateFault(nowMs int64, cfg Config) {
	if !c.Checked(cfg) {
		c.fault = false
		c.spinRequestMs = -1
		return
	}
	if c.spinRequestMs < 0 {
		c.spinRequestMs = nowMs
	}
	if nowMs-c.spinRequestMs >= int64(cfg.SpinupMs) {
		c.fault = nowMs-c.lastTachEdge > int64(cfg.TachTimeoutMs)
	} else {
		c.fault = false
	}
}

// RPM estimates fan speed from the rolling window of tach edge intervals.
// Returns 0 until enough edges have been observed.
func (c *Controller) RPM() float64 {
	if c.tachIntervals.Reduce(rolling.Count) < 2 {
		return 0
	}
	avgIntervalMs := c.tachIntervals.Reduce(rolling.Avg)
	if avgIntervalMs <= 0 {
		return 0
	}
	return 60000.0 / (avgIntervalMs * edgesPerRevolution)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
