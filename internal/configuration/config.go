package configuration

import (
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/adstech/opensink/internal/ui"
)

type SerialConfig struct {
	Device string `json:"device"`
	Baud   int    `json:"baud"`
}

type StoreConfig struct {
	// Type selects the settings store backend: bolt | file | memory.
	Type     string `json:"type"`
	Path     string `json:"path"`
	Capacity int    `json:"capacity"`
}

type ApiConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

type StatisticsConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

type Configuration struct {
	Console SerialConfig `json:"console"`
	Data    SerialConfig `json:"data"`

	Store                StoreConfig `json:"store"`
	SettingsFallbackPath string      `json:"settingsFallbackPath"`

	// Simulation runs against a simulated board instead of serial hardware.
	Simulation   bool `json:"simulation"`
	StartupBlink bool `json:"startupBlink"`

	TempToDuty LutPointList `json:"tempToDuty"`
	AdcToTemp  LutPointList `json:"adcToTemp"`

	Api        ApiConfig        `json:"api"`
	Statistics StatisticsConfig `json:"statistics"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("opensink")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/opensink/")
	}

	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("console.device", "")
	viper.SetDefault("console.baud", 115200)
	viper.SetDefault("data.device", "")
	viper.SetDefault("data.baud", 115200)

	viper.SetDefault("store.type", "bolt")
	viper.SetDefault("store.path", "/etc/opensink/opensink.db")
	viper.SetDefault("store.capacity", 4096)
	viper.SetDefault("settingsFallbackPath", "")

	viper.SetDefault("simulation", false)
	viper.SetDefault("startupBlink", true)

	viper.SetDefault("tempToDuty", defaultTempToDuty)
	viper.SetDefault("adcToTemp", defaultAdcToTemp)

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.host", "localhost")
	viper.SetDefault("api.port", 9439)
	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9440)
}

func DetectAndReadConfigFile() string {
	if err := viper.ReadInConfig(); err != nil {
		// running without a config file is fine, defaults cover everything
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			ui.Fatal("Error reading config file, %s", err)
		}
	} else {
		ui.Info("Using configuration file at: %s", viper.ConfigFileUsed())
	}
	return viper.ConfigFileUsed()
}

func LoadConfig() {
	// load default configuration values
	err := viper.Unmarshal(&CurrentConfig, viper.DecodeHook(lutPointsHookFunc()))
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}
}
