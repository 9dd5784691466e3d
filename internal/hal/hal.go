package hal

// ADC reads a single analog channel as 16-bit counts (0..65535).
type ADC interface {
	Value() int
}

// PWMOut drives a PWM output with a duty fraction in [0..1].
type PWMOut interface {
	SetDuty(duty float64)
}

type DigitalIn interface {
	Value() bool
}

type DigitalOut interface {
	Set(value bool)
}

// Clock provides a monotonic millisecond timestamp. All deadlines in the
// control loop are comparisons against this clock.
type Clock interface {
	NowMillis() int64
}

// Resetter performs a device reset. On real hardware this never returns.
type Resetter interface {
	Reset() error
}

// Board bundles the peripherals the controller drives.
type Board struct {
	VinADC     ADC
	TempADC    ADC
	FanPWM     PWMOut
	FanTach    DigitalIn
	PowerGood  DigitalIn
	LoadEnable DigitalOut
	LED        DigitalOut
	Clock      Clock
	Resetter   Resetter
}
