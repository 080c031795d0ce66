package invoker

import (
	"errors"
	"math/rand"
	"sync"
)

// FaultInjector converts a fraction of calls into synthetic transient
// failures so the retry path can be exercised without a flaky backend.
// A nil injector is inert; production configuration leaves it nil.
type FaultInjector struct {
	rate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewFaultInjector returns nil when rate is not positive, so a zero
// configuration cannot inject anything.
func NewFaultInjector(rate float64, seed int64) *FaultInjector {
	if rate <= 0 {
		return nil
	}
	if rate > 1 {
		rate = 1
	}
	return &FaultInjector{rate: rate, rng: rand.New(rand.NewSource(seed))}
}

// Trip returns a transient error for the configured fraction of calls.
func (f *FaultInjector) Trip() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rng.Float64() < f.rate {
		return Transient(errors.New("injected transient fault"))
	}
	return nil
}
