package configuration

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/adstech/opensink/internal/ui"
)

func Validate() error {
	return validateConfig(&CurrentConfig)
}

func validateConfig(config *Configuration) error {
	if err := validateStore(config); err != nil {
		return err
	}
	if err := validateSerial(config); err != nil {
		return err
	}
	if err := validateTempToDuty(config.TempToDuty); err != nil {
		return err
	}
	return validateAdcToTemp(config.AdcToTemp)
}

var storeTypes = []string{"bolt", "file", "memory"}

func validateStore(config *Configuration) error {
	if !slices.Contains(storeTypes, config.Store.Type) {
		return fmt.Errorf("store: unknown type %q, use one of: bolt | file | memory", config.Store.Type)
	}
	if config.Store.Type != "memory" && config.Store.Path == "" {
		return fmt.Errorf("store: type %q requires a path", config.Store.Type)
	}
	if config.Store.Capacity < 0 {
		return errors.New("store: capacity must not be negative")
	}
	if config.Store.Capacity == 0 {
		ui.Warning("Store capacity is 0, SAVE will report the store as unavailable")
	}
	return nil
}

func validateSerial(config *Configuration) error {
	for _, endpoint := range []struct {
		name string
		cfg  SerialConfig
	}{
		{"console", config.Console},
		{"data", config.Data},
	} {
		if endpoint.cfg.Device != "" && endpoint.cfg.Baud <= 0 {
			return fmt.Errorf("%s: baud must be positive", endpoint.name)
		}
	}
	if !config.Simulation && config.Console.Device == "" && config.Data.Device == "" {
		ui.Warning("No serial endpoint configured, commands only reachable via simulation or api")
	}
	return nil
}

func validateTempToDuty(rows LutPointList) error {
	if len(rows) == 0 {
		return errors.New("tempToDuty: table must not be empty")
	}
	for i, row := range rows {
		if row[1] < 0 || row[1] > 1 {
			return fmt.Errorf("tempToDuty row %d: duty %g outside [0..1]", i, row[1])
		}
		if i > 0 && row[0] <= rows[i-1][0] {
			return fmt.Errorf("tempToDuty row %d: thresholds must be strictly ascending", i)
		}
	}
	return nil
}

func validateAdcToTemp(rows LutPointList) error {
	if len(rows) == 0 {
		return errors.New("adcToTemp: table must not be empty")
	}
	for i, row := range rows {
		if row[0] < 0 || row[0] > 65535 {
			return fmt.Errorf("adcToTemp row %d: count %g outside the 16-bit ADC range", i, row[0])
		}
		if i > 0 && row[0] >= rows[i-1][0] {
			return fmt.Errorf("adcToTemp row %d: counts must be strictly descending", i)
		}
	}
	return nil
}
