package buildlog

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat periodically emits heartbeat events so a stalled batch is visible
// in the log: heartbeats without new attempt events mean a compiler hangs.
type Heartbeat struct {
	log      Log
	interval time.Duration
	status   func() string
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// StartHeartbeat starts the heartbeat goroutine. status, if non-nil, is
// called on each tick and its result becomes the event detail.
func StartHeartbeat(l Log, interval time.Duration, status func() string) *Heartbeat {
	if l == nil || !l.Enabled() || interval <= 0 {
		return nil
	}

	h := &Heartbeat{
		log:      l,
		interval: interval,
		status:   status,
		stopCh:   make(chan struct{}),
	}

	h.wg.Add(1)
	go h.run()

	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	seq := uint64(0)
	for {
		select {
		case <-ticker.C:
			seq++
			detail := ""
			if h.status != nil {
				detail = h.status()
			}
			Emit(h.log, KindHeartbeat, "", fmt.Sprintf("#%d", seq), detail)
		case <-h.stopCh:
			return
		}
	}
}

// Stop stops the heartbeat goroutine and waits for it to finish.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		close(h.stopCh)
		h.wg.Wait()
	})
}
