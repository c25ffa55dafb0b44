package sensors

import (
	"sync"
	"time"
)

// SimulatedBattery drains one percent per DrainEvery down to a floor.
type SimulatedBattery struct {
	DrainEvery time.Duration
	Floor      int

	now func() time.Time

	mu      sync.Mutex
	level   int
	started time.Time
}

func NewSimulatedBattery(drainEvery time.Duration) *SimulatedBattery {
	if drainEvery <= 0 {
		drainEvery = time.Minute
	}
	return &SimulatedBattery{DrainEvery: drainEvery, Floor: 5, now: time.Now, level: 100}
}

func (b *SimulatedBattery) Init() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = 100
	b.started = b.now()
}

func (b *SimulatedBattery) Loop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started.IsZero() {
		return
	}
	lvl := 100 - int(b.now().Sub(b.started)/b.DrainEvery)
	if lvl < b.Floor {
		lvl = b.Floor
	}
	b.level = lvl
}

// ChargeLevel returns the charge in percent.
func (b *SimulatedBattery) ChargeLevel() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.level
}
