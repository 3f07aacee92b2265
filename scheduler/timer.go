package scheduler

import (
	"sync"
	"time"
)

// Timer is the scheduling facility the host provides. fn is first called after delay,
// then every period until stop is called. Calls to fn never overlap.
type Timer interface {
	Schedule(delay, period time.Duration, fn func()) (stop func())
}

// LocalTimer runs fn on a dedicated goroutine. Ticks that come due while fn is still
// running are dropped rather than queued.
type LocalTimer struct{}

func (LocalTimer) Schedule(delay, period time.Duration, fn func()) func() {
	done := make(chan any)
	var once sync.Once

	go func() {
		first := time.NewTimer(delay)
		defer first.Stop()
		select {
		case <-done:
			return
		case <-first.C:
			fn()
		}

		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}
