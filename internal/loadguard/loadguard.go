// Package loadguard implements the load cutoff: a hysteretic base policy on
// temperature and input voltage, hard interlocks for fan and sensor faults,
// and the indicator output.
package loadguard

// BrokenTempCutoffC is the broken-sensor sentinel: an open NTC on a high-side
// divider reads as a very low apparent temperature.
const BrokenTempCutoffC = -25.0

// Config carries the per-tick cutoff parameters.
type Config struct {
	TripC     float64
	HystC     float64
	TripV     float64
	HystV     float64
	BypassVin bool
	BlinkMs   int
}

// Inputs is everything the guard consumes on one tick.
type Inputs struct {
	TempC      float64
	VinV       float64
	FanFault   bool
	FanChecked bool
	NowMs      int64
}

// Outputs drives the load-enable pin and the indicator LED.
type Outputs struct {
	LoadEnabled bool
	BaseEnabled bool
	SensorFault bool
	LED         bool
}

// Guard holds the interlock state between ticks. Owned by the control loop.
type Guard struct {
	baseEnabled bool

	blinkState  bool
	lastBlinkMs int64
}

func New() *Guard {
	return &Guard{baseEnabled: true}
}

func (g *Guard) BaseEnabled() bool { return g.baseEnabled }

// Tick evaluates the cutoff policy. The temperature and voltage channels are
// independent: either one alone can trip the base state and either one alone
// can re-enable it, each against its own hysteresis band. The voltage channel
// is ignored entirely while bypassed. Fan fault and broken-sensor fault force
// the load off regardless of the base state.
func (g *Guard) Tick(in Inputs, cfg Config) Outputs {
	sensorFault := in.TempC < BrokenTempCutoffC

	if g.baseEnabled {
		tripTemp := in.TempC >= cfg.TripC
		tripVin := !cfg.BypassVin && in.VinV < cfg.TripV-cfg.HystV
		if tripTemp || tripVin {
			g.baseEnabled = false
		}
	} else {
		recoverTemp := in.TempC <= cfg.TripC-cfg.HystC
		recoverVin := !cfg.BypassVin && in.VinV >= cfg.TripV
		if recoverTemp || recoverVin {
			g.baseEnabled = true
		}
	}

	loadEnabled := g.baseEnabled && !in.FanFault && !sensorFault

	// The LED mirrors the load state, except during an active fan fault
	// where it blinks so the fault is visually distinguishable.
	led := loadEnabled
	if in.FanFault && in.FanChecked {
		if in.NowMs-g.lastBlinkMs >= int64(cfg.BlinkMs) {
			g.lastBlinkMs = in.NowMs
			g.blinkState = !g.blinkState
		}
		led = g.blinkState
	}

	return Outputs{
		LoadEnabled: loadEnabled,
		BaseEnabled: g.baseEnabled,
		SensorFault: sensorFault,
		LED:         led,
	}
}
