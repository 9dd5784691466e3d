package statistics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/adstech/opensink/internal/telemetry"
)

const controllerSubsystem = "controller"

// SnapshotSource provides the last published control loop sample.
type SnapshotSource interface {
	Snapshot() telemetry.Snapshot
	FanRPM() float64
}

type ControllerCollector struct {
	source SnapshotSource

	temperature *prometheus.Desc
	vin         *prometheus.Desc
	fanDuty     *prometheus.Desc
	fanStep     *prometheus.Desc
	fanRpm      *prometheus.Desc
	loadEnabled *prometheus.Desc
	powerGood   *prometheus.Desc
	manualMode  *prometheus.Desc
}

func NewControllerCollector(source SnapshotSource) *ControllerCollector {
	return &ControllerCollector{
		source: source,
		temperature: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "temperature_celsius"),
			"Filtered, calibrated heatsink temperature",
			nil, nil,
		),
		vin: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "vin_volts"),
			"Filtered, calibrated input voltage",
			nil, nil,
		),
		fanDuty: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "fan_duty"),
			"Commanded fan duty fraction",
			nil, nil,
		),
		fanStep: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "fan_step"),
			"Current fan policy step index",
			nil, nil,
		),
		fanRpm: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "fan_rpm"),
			"Fan speed estimate derived from tach edge intervals",
			nil, nil,
		),
		loadEnabled: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "load_enabled"),
			"1 while the load output is enabled",
			nil, nil,
		),
		powerGood: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "power_good"),
			"1 while the supply reports power good",
			nil, nil,
		),
		manualMode: prometheus.NewDesc(prometheus.BuildFQName(namespace, controllerSubsystem, "fan_manual_mode"),
			"1 while the fan duty is manually overridden",
			nil, nil,
		),
	}
}

func (collector *ControllerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.temperature
	ch <- collector.vin
	ch <- collector.fanDuty
	ch <- collector.fanStep
	ch <- collector.fanRpm
	ch <- collector.loadEnabled
	ch <- collector.powerGood
	ch <- collector.manualMode
}

// Collect implements required collect function for all prometheus collectors
func (collector *ControllerCollector) Collect(ch chan<- prometheus.Metric) {
	snap := collector.source.Snapshot()
	ch <- prometheus.MustNewConstMetric(collector.temperature, prometheus.GaugeValue, snap.TempC)
	ch <- prometheus.MustNewConstMetric(collector.vin, prometheus.GaugeValue, snap.VinV)
	ch <- prometheus.MustNewConstMetric(collector.fanDuty, prometheus.GaugeValue, snap.DutyCmd)
	ch <- prometheus.MustNewConstMetric(collector.fanStep, prometheus.GaugeValue, float64(snap.FanStep))
	ch <- prometheus.MustNewConstMetric(collector.fanRpm, prometheus.GaugeValue, collector.source.FanRPM())
	ch <- prometheus.MustNewConstMetric(collector.loadEnabled, prometheus.GaugeValue, boolGauge(snap.LoadEnabled))
	ch <- prometheus.MustNewConstMetric(collector.powerGood, prometheus.GaugeValue, boolGauge(snap.PowerGood))
	ch <- prometheus.MustNewConstMetric(collector.manualMode, prometheus.GaugeValue, boolGauge(snap.Manual))
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
