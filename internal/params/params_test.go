package params

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	// GIVEN
	s := NewSet()

	// THEN
	assert.Equal(t, 5.0, s.Float("HYST_C"))
	assert.Equal(t, 85.0, s.Float("LOAD_TRIP_C"))
	assert.Equal(t, 5, s.Millis("FAST_DT_MS"))
	assert.Equal(t, 0, s.Millis("TELEM_RATE_MS"))
	assert.Equal(t, FormatHuman, s.Enum("TELEM_FORMAT"))
	assert.InDelta(t, 10.0/100.9, s.Float("VIN_CAL_A"), 1e-12)
}

func TestSetFloat(t *testing.T) {
	// GIVEN
	s := NewSet()

	// WHEN
	err := s.Set("HYST_C", "3.5")

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 3.5, s.Float("HYST_C"))
}

func TestSetMillisCoercesFloatText(t *testing.T) {
	// GIVEN
	s := NewSet()

	// WHEN: the protocol allows "1000.0" for integer millisecond fields
	err := s.Set("RAMP_TIME_MS", "1500.0")

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 1500, s.Millis("RAMP_TIME_MS"))
}

func TestSetUnknownKeyRetainsNothing(t *testing.T) {
	// GIVEN
	s := NewSet()

	// WHEN
	err := s.Set("NO_SUCH_KEY", "1.0")

	// THEN
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestSetOutOfRangeRetainsPriorValue(t *testing.T) {
	// GIVEN
	s := NewSet()
	_ = s.Set("MIN_FAN_DUTY", "0.4")

	// WHEN
	err := s.Set("MIN_FAN_DUTY", "1.5")

	// THEN
	assert.ErrorIs(t, err, ErrRange)
	assert.Equal(t, 0.4, s.Float("MIN_FAN_DUTY"))
}

func TestSetMalformedValue(t *testing.T) {
	// GIVEN
	s := NewSet()

	// WHEN
	err := s.Set("HYST_C", "abc")

	// THEN
	assert.ErrorIs(t, err, ErrSyntax)
	assert.Equal(t, 5.0, s.Float("HYST_C"))
}

func TestSetEnum(t *testing.T) {
	// GIVEN
	s := NewSet()

	// WHEN: enum values are case-insensitive
	err := s.Set("TELEM_FORMAT", "csv")

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, FormatCSV, s.Enum("TELEM_FORMAT"))

	// WHEN
	err = s.Set("TELEM_FORMAT", "XML")

	// THEN
	assert.ErrorIs(t, err, ErrBadEnum)
	assert.Equal(t, FormatCSV, s.Enum("TELEM_FORMAT"))
}

func TestLinesDeclaredOrder(t *testing.T) {
	// GIVEN
	s := NewSet()

	// WHEN
	lines := s.Lines()

	// THEN
	assert.Len(t, lines, 22)
	assert.True(t, strings.HasPrefix(lines[0], "MIN_FAN_DUTY="))
	assert.True(t, strings.HasPrefix(lines[1], "HYST_C="))
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "LED_BLINK_MS="))
	for _, line := range lines {
		assert.Contains(t, line, "=")
	}
}

func TestExportImportRoundtrip(t *testing.T) {
	// GIVEN
	s := NewSet()
	_ = s.Set("HYST_C", "2.5")
	_ = s.Set("RAMP_TIME_MS", "2000")
	_ = s.Set("TELEM_FORMAT", "CSV")

	// WHEN
	exported := s.Export()
	restored := NewSet()
	restored.Import(exported)

	// THEN
	assert.Equal(t, 2.5, restored.Float("HYST_C"))
	assert.Equal(t, 2000, restored.Millis("RAMP_TIME_MS"))
	assert.Equal(t, FormatCSV, restored.Enum("TELEM_FORMAT"))
}

func TestImportIgnoresUnknownAndInvalid(t *testing.T) {
	// GIVEN
	s := NewSet()

	// WHEN
	s.Import(map[string]interface{}{
		"BOGUS_KEY":    1.0,
		"HYST_C":       999.0, // out of range
		"LOAD_TRIP_C":  80.0,
		"TELEM_FORMAT": "NOPE",
	})

	// THEN
	assert.Equal(t, 5.0, s.Float("HYST_C"))
	assert.Equal(t, 80.0, s.Float("LOAD_TRIP_C"))
	assert.Equal(t, FormatHuman, s.Enum("TELEM_FORMAT"))
}

func TestRestoreDefaults(t *testing.T) {
	// GIVEN
	s := NewSet()
	_ = s.Set("HYST_C", "1.0")
	_ = s.Set("TELEM_RATE_MS", "500")

	// WHEN
	s.RestoreDefaults()

	// THEN
	assert.Equal(t, 5.0, s.Float("HYST_C"))
	assert.Equal(t, 0, s.Millis("TELEM_RATE_MS"))
}
