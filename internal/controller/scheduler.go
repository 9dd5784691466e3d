package controller

import (
	"context"
	"time"

	"github.com/adstech/opensink/internal/ui"
)

// periodicTask is a cooperative scheduler entry: run fires when the period
// has elapsed since the last run. A period of zero or less disables the task.
type periodicTask struct {
	period  func() int
	lastRun int64
	run     func(nowMs int64)
}

func (t *periodicTask) service(nowMs int64) {
	period := t.period()
	if period <= 0 {
		return
	}
	if nowMs-t.lastRun >= int64(period) {
		t.lastRun = nowMs
		t.run(nowMs)
	}
}

// Step runs one loop iteration in fixed priority order: at most one command,
// then the control tick, then telemetry. Returns false once a reboot has
// been requested.
func (c *Controller) Step() bool {
	c.server.Poll()

	nowMs := c.board.Clock.NowMillis()
	c.control.service(nowMs)
	c.telemetry.service(nowMs)

	return !c.rebootRequested
}

// Run executes the startup sequence and then the control loop until the
// context is cancelled or a REBOOT command arrives.
func (c *Controller) Run(ctx context.Context) error {
	if c.startupBlink {
		c.blinkVersion()
	}
	c.conn.WriteLine("READY opensink (FW " + FirmwareVersion + ")")
	ui.Info("Control loop started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !c.Step() {
			ui.Info("Reboot requested")
			return c.board.Resetter.Reset()
		}
		c.sleep(1 * time.Millisecond)
	}
}
