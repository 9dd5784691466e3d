package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sample() Snapshot {
	return Snapshot{
		VinV:        11.987,
		TempAdcV:    1.234,
		TempC:       42.6,
		FanStep:     2,
		DutyCmd:     0.65,
		LoadEnabled: true,
		PowerGood:   true,
		Manual:      false,
	}
}

func TestFormatCSV(t *testing.T) {
	assert.Equal(t, "11.987,1.234,42.6,2,65,ON,OK,AUTO", FormatCSV(sample()))
}

func TestFormatHuman(t *testing.T) {
	assert.Equal(t,
		"VIN=11.987V TEMPADC=1.234V T=42.6C FanIdx=2 Duty=65% LOAD=ON PG=OK MODE=AUTO",
		FormatHuman(sample()))
}

func TestFormatFaultStates(t *testing.T) {
	s := sample()
	s.LoadEnabled = false
	s.PowerGood = false
	s.Manual = true

	assert.Equal(t, "11.987,1.234,42.6,2,65,OFF,FAIL,MAN", FormatCSV(s))
}

func TestFormatSelectsByName(t *testing.T) {
	assert.Equal(t, FormatCSV(sample()), Format("CSV", sample()))
	assert.Equal(t, FormatHuman(sample()), Format("HUMAN", sample()))
	assert.Equal(t, FormatCSV(sample()), Format("", sample()))
}
