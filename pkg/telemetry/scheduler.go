package telemetry

import (
	"sync"
	"time"
)

// scheduler calls tick every interval on its own goroutine until stopped.
type scheduler struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startScheduler(interval time.Duration, tick func()) *scheduler {
	s := &scheduler{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run(interval, tick)
	return s
}

func (s *scheduler) run(interval time.Duration, tick func()) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			tick()
		}
	}
}

// Stop prevents further ticks and waits for a running tick to return. It
// is safe to call more than once and on a nil scheduler. Stop must not be
// called from tick.
func (s *scheduler) Stop() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}
