package configuration

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// LutPointList is a list of two-element lookup table rows as written in the
// config file: [[40.0, 0.35], [50.0, 0.5], ...].
type LutPointList [][2]float64

// lutPointsHookFunc returns a mapstructure decode hook that converts the
// generic nested slices produced by the YAML decoder into a LutPointList,
// accepting integers where the author wrote 40 instead of 40.0.
func lutPointsHookFunc() mapstructure.DecodeHookFuncType {
	listType := reflect.TypeOf(LutPointList{})

	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != listType {
			return data, nil
		}

		switch v := data.(type) {
		case LutPointList:
			return v, nil
		case [][2]float64:
			return LutPointList(v), nil
		case []interface{}:
			result := make(LutPointList, 0, len(v))
			for i, raw := range v {
				row, ok := raw.([]interface{})
				if !ok {
					return nil, fmt.Errorf("lut row %d: expected a two-element list, got %T", i, raw)
				}
				if len(row) != 2 {
					return nil, fmt.Errorf("lut row %d: expected 2 elements, got %d", i, len(row))
				}
				a, err := anyToFloat(row[0])
				if err != nil {
					return nil, fmt.Errorf("lut row %d: %w", i, err)
				}
				b, err := anyToFloat(row[1])
				if err != nil {
					return nil, fmt.Errorf("lut row %d: %w", i, err)
				}
				result = append(result, [2]float64{a, b})
			}
			return result, nil
		}
		return data, nil
	}
}

// anyToFloat converts numeric and string values to float64.
func anyToFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as float: %w", val, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}
