package clock

import (
	"sync"
	"time"
)

// Fake implements Clock and Scheduler with manually advanced time.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	at       time.Time
	interval time.Duration // zero for one-shot
	fn       func()
	done     bool
}

type fakeHandle struct {
	f *Fake
	t *fakeTimer
}

func (h fakeHandle) Cancel() {
	h.f.mu.Lock()
	h.t.done = true
	h.f.mu.Unlock()
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) After(d time.Duration, fn func()) Handle {
	return f.schedule(d, 0, fn)
}

func (f *Fake) Every(d time.Duration, fn func()) Handle {
	return f.schedule(d, d, fn)
}

func (f *Fake) schedule(d, interval time.Duration, fn func()) Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{at: f.now.Add(d), interval: interval, fn: fn}
	f.timers = append(f.timers, t)
	return fakeHandle{f: f, t: t}
}

// Advance moves the fake time forward by d, firing every due callback in
// chronological order. Callbacks run without the internal lock held, so
// they may schedule or cancel timers themselves.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range f.timers {
			if t.done || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			break
		}
		f.now = next.at
		if next.interval > 0 {
			next.at = next.at.Add(next.interval)
		} else {
			next.done = true
		}
		fn := next.fn
		f.mu.Unlock()
		fn()
		f.mu.Lock()
	}
	f.now = target
	f.mu.Unlock()
}
