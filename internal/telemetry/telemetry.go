// Package telemetry formats periodic status snapshots for the line protocol.
package telemetry

import "fmt"

// Snapshot is one telemetry sample.
type Snapshot struct {
	VinV        float64
	TempAdcV    float64
	TempC       float64
	FanStep     int
	DutyCmd     float64
	LoadEnabled bool
	PowerGood   bool
	Manual      bool
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func okFail(v bool) string {
	if v {
		return "OK"
	}
	return "FAIL"
}

func mode(manual bool) string {
	if manual {
		return "MAN"
	}
	return "AUTO"
}

// FormatCSV renders the compact machine-readable telemetry record.
func FormatCSV(s Snapshot) string {
	return fmt.Sprintf("%.3f,%.3f,%.1f,%d,%.0f,%s,%s,%s",
		s.VinV, s.TempAdcV, s.TempC, s.FanStep, s.DutyCmd*100,
		onOff(s.LoadEnabled), okFail(s.PowerGood), mode(s.Manual))
}

// FormatHuman renders the labeled telemetry record.
func FormatHuman(s Snapshot) string {
	return fmt.Sprintf("VIN=%.3fV TEMPADC=%.3fV T=%.1fC FanIdx=%d Duty=%.0f%% LOAD=%s PG=%s MODE=%s",
		s.VinV, s.TempAdcV, s.TempC, s.FanStep, s.DutyCmd*100,
		onOff(s.LoadEnabled), okFail(s.PowerGood), mode(s.Manual))
}

// Format renders the snapshot in the named format, defaulting to CSV.
func Format(format string, s Snapshot) string {
	if format == "HUMAN" {
		return FormatHuman(s)
	}
	return FormatCSV(s)
}
