package controller

import (
	"errors"

	"github.com/qdm12/reprint"

	"github.com/adstech/opensink/internal/luts"
	"github.com/adstech/opensink/internal/nvm"
	"github.com/adstech/opensink/internal/params"
	"github.com/adstech/opensink/internal/protocol"
)

// protocol.Backend implementation. These methods run on the control loop
// goroutine, between ticks, so they mutate engine state without locking.

func (c *Controller) Version() string {
	return FirmwareVersion
}

func (c *Controller) Status() (bool, bool) {
	if c.statusFn == nil {
		return false, false
	}
	return c.statusFn()
}

func (c *Controller) ParamLines() []string {
	return c.parameters.Lines()
}

func (c *Controller) SetParam(key, value string) error {
	err := c.parameters.Set(key, value)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, params.ErrUnknownKey):
		return protocol.NewCmdError(400, "UNKNOWN_KEY")
	case errors.Is(err, params.ErrBadEnum):
		return protocol.NewCmdError(400, "BAD_FORMAT")
	case errors.Is(err, params.ErrRange):
		return protocol.NewCmdError(400, "RANGE")
	default:
		return protocol.NewCmdError(400, "PARSE")
	}
}

func (c *Controller) TempDutyLUT() []luts.TempDutyPoint {
	return c.fan.Table()
}

func (c *Controller) InstallTempDutyLUT(points []luts.TempDutyPoint) error {
	table, err := luts.NewTempToDuty(points)
	if err != nil {
		return protocol.NewCmdError(400, "EMPTY")
	}
	c.fan.SetTable(table)
	return nil
}

func (c *Controller) AdcTempLUT() []luts.AdcTempPoint {
	return c.adcTemp
}

func (c *Controller) InstallAdcTempLUT(points []luts.AdcTempPoint) error {
	table, err := luts.NewAdcToTemp(points)
	if err != nil {
		return protocol.NewCmdError(400, "EMPTY")
	}
	c.adcTemp = table
	return nil
}

func (c *Controller) FanAuto() {
	c.fan.Auto()
}

func (c *Controller) FanDuty(duty float64) error {
	c.fan.ManualDuty(duty, c.board.Clock.NowMillis(), c.fanConfig())
	return nil
}

func (c *Controller) TelemRate(ms int) {
	if ms < 0 {
		ms = 0
	}
	c.parameters.SetMillis("TELEM_RATE_MS", ms)
}

func (c *Controller) TelemFormat(format string) error {
	if err := c.parameters.SetEnum("TELEM_FORMAT", format); err != nil {
		return protocol.NewCmdError(400, "BAD_FORMAT")
	}
	return nil
}

func (c *Controller) SaveSettings() (string, error) {
	return nvm.Save(c.store, nvm.Settings{
		Params:     c.parameters.Export(),
		TempToDuty: tempDutyRows(c.fan.Table()),
		AdcToTemp:  adcTempRows(c.adcTemp),
	})
}

// LoadDefaults restores compiled-in parameter defaults and the boot LUTs.
// In-RAM only; the store is untouched until the next SAVE.
func (c *Controller) LoadDefaults() {
	c.parameters.RestoreDefaults()
	c.fan.SetTable(reprint.This(c.bootTempDuty).(luts.TempToDuty))
	c.adcTemp = reprint.This(c.bootAdcTemp).(luts.AdcToTemp)
}

func (c *Controller) Reboot() {
	c.rebootRequested = true
}

func tempDutyRows(table luts.TempToDuty) [][2]float64 {
	rows := make([][2]float64, len(table))
	for i, p := range table {
		rows[i] = [2]float64{p.TempC, p.Duty}
	}
	return rows
}

func adcTempRows(table luts.AdcToTemp) [][2]float64 {
	rows := make([][2]float64, len(table))
	for i, p := range table {
		rows[i] = [2]float64{float64(p.Count), p.TempC}
	}
	return rows
}
