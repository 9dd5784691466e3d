package hal

import (
	"sync"
	"time"
)

// SimADC is a settable ADC channel for host runs and tests.
type SimADC struct {
	mu     sync.Mutex
	counts int
}

func NewSimADC(counts int) *SimADC {
	return &SimADC{counts: counts}
}

func (a *SimADC) Value() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts
}

func (a *SimADC) SetValue(counts int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if counts < 0 {
		counts = 0
	}
	if counts > 65535 {
		counts = 65535
	}
	a.counts = counts
}

// SimPWM records the last commanded duty.
type SimPWM struct {
	mu   sync.Mutex
	duty float64
}

func (p *SimPWM) SetDuty(duty float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.duty = duty
}

func (p *SimPWM) Duty() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duty
}

// SimDigitalIn is a settable digital input (tach line, power good).
type SimDigitalIn struct {
	mu    sync.Mutex
	level bool
}

func NewSimDigitalIn(level bool) *SimDigitalIn {
	return &SimDigitalIn{level: level}
}

func (d *SimDigitalIn) Value() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level
}

func (d *SimDigitalIn) SetValue(level bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.level = level
}

// Toggle flips the input level, e.g. to simulate tach edges.
func (d *SimDigitalIn) Toggle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.level = !d.level
}

// SimDigitalOut records the last written value.
type SimDigitalOut struct {
	mu    sync.Mutex
	value bool
}

func (d *SimDigitalOut) Set(value bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = value
}

func (d *SimDigitalOut) Value() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

// WallClock derives monotonic milliseconds from the process start time.
type WallClock struct {
	start time.Time
}

func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

func (c *WallClock) NowMillis() int64 {
	return time.Since(c.start).Milliseconds()
}

// SimClock is a manually advanced clock for tests.
type SimClock struct {
	mu sync.Mutex
	ms int64
}

func (c *SimClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ms
}

func (c *SimClock) Advance(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ms += ms
}

// SimResetter counts reset requests instead of resetting anything.
type SimResetter struct {
	mu     sync.Mutex
	resets int
}

func (r *SimResetter) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
	return nil
}

func (r *SimResetter) Resets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

// NewSimBoard returns a fully simulated board with neutral initial readings.
func NewSimBoard(clock Clock) (Board, *SimADC, *SimADC, *SimPWM, *SimDigitalIn) {
	vin := NewSimADC(30000)
	temp := NewSimADC(43085) // about 25 degC on the default thermistor table
	pwm := &SimPWM{}
	tach := NewSimDigitalIn(false)
	board := Board{
		VinADC:     vin,
		TempADC:    temp,
		FanPWM:     pwm,
		FanTach:    tach,
		PowerGood:  NewSimDigitalIn(true),
		LoadEnable: &SimDigitalOut{},
		LED:        &SimDigitalOut{},
		Clock:      clock,
		Resetter:   &SimResetter{},
	}
	return board, vin, temp, pwm, tach
}
