// Package params implements the tunable parameter table. The key set is fixed
// at compile time, every key has a declared type and legal range, and writes
// that fail validation leave the prior value untouched.
package params

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownKey = errors.New("unknown parameter key")
	ErrBadEnum    = errors.New("value is not a valid option")
	ErrRange      = errors.New("value out of range")
	ErrSyntax     = errors.New("malformed value")
)

type Kind int

const (
	// KindFloat values are plain floating point numbers.
	KindFloat Kind = iota
	// KindMillis values are integer millisecond durations.
	KindMillis
	// KindEnum values are one of a fixed set of tokens.
	KindEnum
)

const (
	FormatCSV   = "CSV"
	FormatHuman = "HUMAN"
)

type spec struct {
	kind         Kind
	min, max     float64
	options      []string
	defaultFloat float64
	defaultInt   int
	defaultEnum  string
}

// Declared key table. Order matters: it is the order GET PARAMS reports.
var order = []string{
	"MIN_FAN_DUTY",
	"HYST_C",
	"LOAD_TRIP_C",
	"LOAD_TRIP_V",
	"HYST_V",
	"BYPASS_VIN_CUTOFF",
	"FAST_DT_MS",
	"SLOW_DT_MS",
	"FC_TEMP_HZ",
	"FC_VIN_HZ",
	"RAMP_TIME_MS",
	"RAMP_STEP_MS",
	"TELEM_RATE_MS",
	"TELEM_FORMAT",
	"TEMP_CAL_A",
	"TEMP_CAL_B",
	"VIN_CAL_A",
	"VIN_CAL_B",
	"FAN_CHECK_MIN_DUTY",
	"FAN_SPINUP_MS",
	"FAN_TACH_TIMEOUT_MS",
	"LED_BLINK_MS",
}

var specs = map[string]spec{
	"HYST_C":              {kind: KindFloat, min: 0, max: 50, defaultFloat: 5.0},
	"LOAD_TRIP_C":         {kind: KindFloat, min: -40, max: 150, defaultFloat: 85.0},
	"MIN_FAN_DUTY":        {kind: KindFloat, min: 0, max: 1, defaultFloat: 0.20},
	"FAST_DT_MS":          {kind: KindMillis, min: 1, max: 10000, defaultInt: 5},
	"SLOW_DT_MS":          {kind: KindMillis, min: 0, max: 60000, defaultInt: 250},
	"FC_TEMP_HZ":          {kind: KindFloat, min: 0, max: 1000, defaultFloat: 0.5},
	"FC_VIN_HZ":           {kind: KindFloat, min: 0, max: 1000, defaultFloat: 0.5},
	"RAMP_TIME_MS":        {kind: KindMillis, min: 0, max: 600000, defaultInt: 1000},
	"RAMP_STEP_MS":        {kind: KindMillis, min: 1, max: 60000, defaultInt: 50},
	"TELEM_RATE_MS":       {kind: KindMillis, min: 0, max: 3600000, defaultInt: 0},
	"TELEM_FORMAT":        {kind: KindEnum, options: []string{FormatCSV, FormatHuman}, defaultEnum: FormatHuman},
	"TEMP_CAL_A":          {kind: KindFloat, min: -1000, max: 1000, defaultFloat: 1.0},
	"TEMP_CAL_B":          {kind: KindFloat, min: -1000, max: 1000, defaultFloat: 0.0},
	"VIN_CAL_A":           {kind: KindFloat, min: -1000, max: 1000, defaultFloat: 10.0 / 100.9},
	"VIN_CAL_B":           {kind: KindFloat, min: -1000, max: 1000, defaultFloat: 0.0},
	"LOAD_TRIP_V":         {kind: KindFloat, min: 0, max: 100, defaultFloat: 8.5},
	"HYST_V":              {kind: KindFloat, min: 0, max: 50, defaultFloat: 0.5},
	"BYPASS_VIN_CUTOFF":   {kind: KindFloat, min: 0, max: 1, defaultFloat: 1.0},
	"FAN_CHECK_MIN_DUTY":  {kind: KindFloat, min: 0, max: 1, defaultFloat: 0.30},
	"FAN_SPINUP_MS":       {kind: KindMillis, min: 0, max: 60000, defaultInt: 1500},
	"FAN_TACH_TIMEOUT_MS": {kind: KindMillis, min: 1, max: 60000, defaultInt: 600},
	"LED_BLINK_MS":        {kind: KindMillis, min: 10, max: 60000, defaultInt: 300},
}

// Set holds the current parameter values.
type Set struct {
	floats map[string]float64
	millis map[string]int
	enums  map[string]string
}

func NewSet() *Set {
	s := &Set{
		floats: map[string]float64{},
		millis: map[string]int{},
		enums:  map[string]string{},
	}
	s.RestoreDefaults()
	return s
}

func (s *Set) RestoreDefaults() {
	for key, sp := range specs {
		switch sp.kind {
		case KindFloat:
			s.floats[key] = sp.defaultFloat
		case KindMillis:
			s.millis[key] = sp.defaultInt
		case KindEnum:
			s.enums[key] = sp.defaultEnum
		}
	}
}

// Float returns the value of a float-typed key. Panics on a key that is not
// declared as float, which is a programming error, not input.
func (s *Set) Float(key string) float64 {
	v, ok := s.floats[key]
	if !ok {
		panic(fmt.Sprintf("params: %s is not a float key", key))
	}
	return v
}

func (s *Set) Millis(key string) int {
	v, ok := s.millis[key]
	if !ok {
		panic(fmt.Sprintf("params: %s is not a millisecond key", key))
	}
	return v
}

func (s *Set) Enum(key string) string {
	v, ok := s.enums[key]
	if !ok {
		panic(fmt.Sprintf("params: %s is not an enum key", key))
	}
	return v
}

// SetMillis applies a programmatic write to a millisecond key, clamping into
// its legal range.
func (s *Set) SetMillis(key string, ms int) {
	sp, ok := specs[key]
	if !ok || sp.kind != KindMillis {
		panic(fmt.Sprintf("params: %s is not a millisecond key", key))
	}
	if float64(ms) < sp.min {
		ms = int(sp.min)
	}
	if float64(ms) > sp.max {
		ms = int(sp.max)
	}
	s.millis[key] = ms
}

// SetEnum applies a programmatic write to an enum key.
func (s *Set) SetEnum(key, value string) error {
	sp, ok := specs[key]
	if !ok || sp.kind != KindEnum {
		panic(fmt.Sprintf("params: %s is not an enum key", key))
	}
	value = strings.ToUpper(strings.TrimSpace(value))
	for _, option := range sp.options {
		if value == option {
			s.enums[key] = value
			return nil
		}
	}
	return ErrBadEnum
}

// Set parses and applies a textual write, coercing the value per the key's
// declared type. The prior value is retained on any error.
func (s *Set) Set(key, value string) error {
	sp, ok := specs[key]
	if !ok {
		return ErrUnknownKey
	}
	switch sp.kind {
	case KindEnum:
		return s.SetEnum(key, value)
	case KindMillis:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return ErrSyntax
		}
		ms := int(f)
		if float64(ms) < sp.min || float64(ms) > sp.max {
			return ErrRange
		}
		s.millis[key] = ms
		return nil
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return ErrSyntax
		}
		if f < sp.min || f > sp.max {
			return ErrRange
		}
		s.floats[key] = f
		return nil
	}
}

func (s *Set) format(key string) string {
	switch specs[key].kind {
	case KindMillis:
		return strconv.Itoa(s.millis[key])
	case KindEnum:
		return s.enums[key]
	default:
		return strconv.FormatFloat(s.floats[key], 'g', -1, 64)
	}
}

// Lines returns KEY=VALUE pairs in declared order, as reported by GET PARAMS.
func (s *Set) Lines() []string {
	lines := make([]string, 0, len(order))
	for _, key := range order {
		lines = append(lines, key+"="+s.format(key))
	}
	return lines
}

// Export returns the parameter values keyed by name, for persistence.
func (s *Set) Export() map[string]interface{} {
	result := map[string]interface{}{}
	for key, sp := range specs {
		switch sp.kind {
		case KindFloat:
			result[key] = s.floats[key]
		case KindMillis:
			result[key] = s.millis[key]
		case KindEnum:
			result[key] = s.enums[key]
		}
	}
	return result
}

// Import applies persisted values. Unknown keys are ignored, keys absent from
// the input keep their current value, and values that fail validation are
// skipped rather than failing the whole import.
func (s *Set) Import(values map[string]interface{}) {
	for key, raw := range values {
		sp, ok := specs[key]
		if !ok {
			continue
		}
		switch sp.kind {
		case KindEnum:
			if v, ok := raw.(string); ok {
				_ = s.SetEnum(key, v)
			}
		case KindMillis:
			if f, ok := asFloat(raw); ok {
				ms := int(f)
				if float64(ms) >= sp.min && float64(ms) <= sp.max {
					s.millis[key] = ms
				}
			}
		default:
			if f, ok := asFloat(raw); ok {
				if f >= sp.min && f <= sp.max {
					s.floats[key] = f
				}
			}
		}
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	default:
		return 0, false
	}
}
