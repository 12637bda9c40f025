package pwm

import (
	"sync"

	"periph.io/x/periph/conn/physic"
)

// Dummy is a Channel that drives nothing. It records every duty command so
// the servo can be exercised without hardware.
type Dummy struct {
	// StartErr, if set, is returned by Start to simulate a busy or
	// inaccessible pin.
	StartErr error

	mu      sync.Mutex
	name    string
	freq    physic.Frequency
	running bool
	starts  int
	stops   int
	duties  []float64
}

func NewDummy(name string) *Dummy {
	return &Dummy{name: name}
}

func (d *Dummy) Name() string {
	return d.name
}

func (d *Dummy) Start(freq physic.Frequency) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.StartErr != nil {
		return d.StartErr
	}
	d.freq = freq
	d.running = true
	d.starts++
	d.duties = append(d.duties, 0)
	return nil
}

func (d *Dummy) SetDuty(percent float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.duties = append(d.duties, clampPercent(percent))
	return nil
}

func (d *Dummy) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	d.stops++
	d.duties = append(d.duties, 0)
	return nil
}

// Duties returns every duty cycle written so far, including the implicit 0%
// written by Start and Stop.
func (d *Dummy) Duties() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]float64(nil), d.duties...)
}

// Duty returns the duty cycle currently being emitted.
func (d *Dummy) Duty() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.duties) == 0 {
		return 0
	}
	return d.duties[len(d.duties)-1]
}

func (d *Dummy) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Dummy) Frequency() physic.Frequency {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.freq
}

func (d *Dummy) Starts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts
}

func (d *Dummy) Stops() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}

var _ Channel = (*Dummy)(nil)
