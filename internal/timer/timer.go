// Package timer is a coarse clock for I/O deadlines. Reading it is a single atomic load,
// which is noticeably cheaper than time.Now() on the hot path of every read and write.
package timer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Resolution is how often the clock is updated. Deadlines are never set closer than that,
// so it's precise enough.
const Resolution = 500 * time.Millisecond

var (
	millis = new(atomic.Int64)
	start  sync.Once
)

// Now returns the current time, truncated to Resolution at most. The ticking goroutine is
// started on the first call.
func Now() time.Time {
	start.Do(run)
	ms := millis.Load()
	return time.UnixMilli(ms)
}

// Deadline returns the point in time the timeout expires at.
func Deadline(timeout time.Duration) time.Time {
	return Now().Add(timeout)
}

func run() {
	millis.Store(time.Now().UnixMilli())

	go func() {
		ticker := time.NewTicker(Resolution)
		for now := range ticker.C {
			millis.Store(now.UnixMilli())
		}
	}()
}
