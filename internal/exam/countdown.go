package exam

import (
	"sync"
	"time"
)

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// countdown calls tick on every ticker fire until cancelled.
type countdown struct {
	ticker Ticker
	done   chan struct{}
	once   sync.Once
}

func startCountdown(t Ticker, tick func()) *countdown {
	c := &countdown{
		ticker: t,
		done:   make(chan struct{}),
	}

	go c.run(tick)

	return c
}

func (c *countdown) run(tick func()) {
	for {
		select {
		case <-c.done:
			return
		case <-c.ticker.C():
			tick()
		}
	}
}

// cancel never blocks, so it is safe to call from inside tick.
func (c *countdown) cancel() {
	c.once.Do(func() {
		c.ticker.Stop()
		close(c.done)
	})
}
