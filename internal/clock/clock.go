// Package clock abstracts wall-clock time and timer scheduling so the poll
// lifecycle can be driven in tests without real delays.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// Handle is a cancellable scheduled callback. Cancel is safe to call more
// than once and after the callback has fired.
type Handle interface {
	Cancel()
}

type Scheduler interface {
	// After runs fn once after d.
	After(d time.Duration, fn func()) Handle
	// Every runs fn repeatedly every d until cancelled.
	Every(d time.Duration, fn func()) Handle
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by time.Now.
func System() Clock { return systemClock{} }

type systemScheduler struct{}

// NewScheduler returns a Scheduler backed by the runtime timers.
func NewScheduler() Scheduler { return systemScheduler{} }

type timerHandle struct {
	t *time.Timer
}

func (h timerHandle) Cancel() { h.t.Stop() }

func (systemScheduler) After(d time.Duration, fn func()) Handle {
	return timerHandle{t: time.AfterFunc(d, fn)}
}

type tickerHandle struct {
	stop chan struct{}
	once sync.Once
}

func (h *tickerHandle) Cancel() {
	h.once.Do(func() { close(h.stop) })
}

func (systemScheduler) Every(d time.Duration, fn func()) Handle {
	h := &tickerHandle{stop: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-h.stop:
				return
			}
		}
	}()
	return h
}
