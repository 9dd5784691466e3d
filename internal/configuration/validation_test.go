package configuration

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func lutPointListType() reflect.Type {
	return reflect.TypeOf(LutPointList{})
}

func validTestConfig() Configuration {
	return Configuration{
		Store:      StoreConfig{Type: "memory", Capacity: 4096},
		Simulation: true,
		TempToDuty: defaultTempToDuty,
		AdcToTemp:  defaultAdcToTemp,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	config := validTestConfig()
	assert.NoError(t, validateConfig(&config))
}

func TestValidateRejectsUnknownStoreType(t *testing.T) {
	config := validTestConfig()
	config.Store.Type = "flash"
	assert.Error(t, validateConfig(&config))
}

func TestValidateRequiresStorePath(t *testing.T) {
	config := validTestConfig()
	config.Store.Type = "bolt"
	config.Store.Path = ""
	assert.Error(t, validateConfig(&config))
}

func TestValidateRejectsEmptyTempToDuty(t *testing.T) {
	config := validTestConfig()
	config.TempToDuty = nil
	assert.Error(t, validateConfig(&config))
}

func TestValidateRejectsDutyOutsideRange(t *testing.T) {
	config := validTestConfig()
	config.TempToDuty = LutPointList{{40, 0.35}, {50, 1.5}}
	assert.Error(t, validateConfig(&config))
}

func TestValidateRejectsUnorderedThresholds(t *testing.T) {
	config := validTestConfig()
	config.TempToDuty = LutPointList{{50, 0.35}, {40, 0.5}}
	assert.Error(t, validateConfig(&config))
}

func TestValidateRejectsAscendingAdcCounts(t *testing.T) {
	config := validTestConfig()
	config.AdcToTemp = LutPointList{{9338, 90}, {43085, 25}}
	assert.Error(t, validateConfig(&config))
}

func TestValidateRejectsBadBaud(t *testing.T) {
	config := validTestConfig()
	config.Console = SerialConfig{Device: "/dev/ttyACM0", Baud: 0}
	assert.Error(t, validateConfig(&config))
}

func TestLutPointsHookDecodesGenericSlices(t *testing.T) {
	// GIVEN: the shape the YAML decoder produces, ints included
	raw := []interface{}{
		[]interface{}{40, 0.35},
		[]interface{}{50.0, 0.5},
	}

	// WHEN
	hook := lutPointsHookFunc()
	decoded, err := hook(nil, lutPointListType(), raw)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, LutPointList{{40, 0.35}, {50, 0.5}}, decoded)
}

func TestLutPointsHookRejectsShortRow(t *testing.T) {
	raw := []interface{}{[]interface{}{40.0}}
	hook := lutPointsHookFunc()
	_, err := hook(nil, lutPointListType(), raw)
	assert.Error(t, err)
}

func TestBootTablesFromDefaults(t *testing.T) {
	config := validTestConfig()

	td, err := config.BootTempDuty()
	assert.NoError(t, err)
	assert.Len(t, td, 5)
	assert.Equal(t, 40.0, td[0].TempC)

	at, err := config.BootAdcTemp()
	assert.NoError(t, err)
	assert.Len(t, at, 34)
	assert.Equal(t, 58071, at[0].Count)
}
