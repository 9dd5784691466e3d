package configuration

import "github.com/adstech/opensink/internal/luts"

// Boot-time lookup tables for the NCU18XH103F60RB thermistor on a 3.3 V
// reference, in 5 degC steps. Counts decrease as temperature increases.
var defaultAdcToTemp = LutPointList{
	{58071, -40.0},
	{57644, -35.0},
	{57112, -30.0},
	{56460, -25.0},
	{55685, -20.0},
	{54785, -15.0},
	{53760, -10.0},
	{52610, -5.0},
	{51335, 0.0},
	{49935, 5.0},
	{48410, 10.0},
	{46760, 15.0},
	{44985, 20.0},
	{43085, 25.0},
	{41062, 30.0},
	{38926, 35.0},
	{36683, 40.0},
	{34351, 45.0},
	{31955, 50.0},
	{29522, 55.0},
	{27083, 60.0},
	{24667, 65.0},
	{22303, 70.0},
	{20021, 75.0},
	{17850, 80.0},
	{15813, 85.0},
	{13932, 90.0},
	{12225, 95.0},
	{10701, 100.0},
	{9366, 105.0},
	{8216, 110.0},
	{7522, 115.0},
	{6777, 120.0},
	{6111, 125.0},
}

// Rising temperature thresholds mapped to fan duty fractions.
var defaultTempToDuty = LutPointList{
	{40.0, 0.35},
	{50.0, 0.50},
	{60.0, 0.65},
	{70.0, 0.80},
	{75.0, 1.00},
}

// BootTempDuty builds the configured temperature to duty table.
func (c Configuration) BootTempDuty() (luts.TempToDuty, error) {
	points := make([]luts.TempDutyPoint, 0, len(c.TempToDuty))
	for _, row := range c.TempToDuty {
		points = append(points, luts.TempDutyPoint{TempC: row[0], Duty: row[1]})
	}
	return luts.NewTempToDuty(points)
}

// BootAdcTemp builds the configured ADC count to temperature table.
func (c Configuration) BootAdcTemp() (luts.AdcToTemp, error) {
	points := make([]luts.AdcTempPoint, 0, len(c.AdcToTemp))
	for _, row := range c.AdcToTemp {
		points = append(points, luts.AdcTempPoint{Count: int(row[0]), TempC: row[1]})
	}
	return luts.NewAdcToTemp(points)
}
