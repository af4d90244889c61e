package market

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// poller is the single polling handle of a Store. A handle is live while
// cancel is set and done is open; done closes when the loop exits on its own.
type poller struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	cycles atomic.Uint64
}

// StartPolling fetches tickers right away and then refreshes tickers, balance,
// positions and orders every poll interval. Calling it while polling is a
// no-op. A tick starts its cycle even if earlier cycles are still in flight.
func (s *Store) StartPolling(ctx context.Context) {
	s.poll.mu.Lock()
	defer s.poll.mu.Unlock()

	if s.poll.live() {
		return
	}
	if s.poll.cancel != nil {
		// The parent ctx ended the previous loop.
		s.poll.cancel()
	}

	pctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.poll.cancel = cancel
	s.poll.done = done

	s.poll.wg.Add(1)
	go s.runPolling(pctx, done)

	s.logger.Infof("polling started, interval %s", s.cfg.PollInterval)
}

// StopPolling stops the loop and waits until every polled request has
// returned. Results of requests still in flight are discarded. No-op when not
// polling.
func (s *Store) StopPolling() {
	s.poll.mu.Lock()
	defer s.poll.mu.Unlock()

	if s.poll.cancel == nil {
		return
	}
	s.poll.cancel()
	s.poll.cancel = nil
	s.poll.done = nil
	s.poll.wg.Wait()

	s.logger.Infof("polling stopped after %d cycles", s.poll.cycles.Load())
}

func (s *Store) Polling() bool {
	s.poll.mu.Lock()
	defer s.poll.mu.Unlock()
	return s.poll.live()
}

// live must be called with mu held.
func (p *poller) live() bool {
	if p.cancel == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (s *Store) runPolling(ctx context.Context, done chan struct{}) {
	defer s.poll.wg.Done()
	defer close(done)

	s.poll.wg.Add(1)
	go func() {
		defer s.poll.wg.Done()
		if err := s.fetchTickers(ctx, s.currentInstType()); err != nil && ctx.Err() == nil {
			s.logger.Errorf("%s: can't fetch initial tickers", err)
		}
	}()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll.wg.Add(1)
			go s.pollCycle(ctx)
		}
	}
}

// pollCycle runs one tick's fetches as a group and logs the outcome.
func (s *Store) pollCycle(ctx context.Context) {
	defer s.poll.wg.Done()
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	cycle := s.poll.cycles.Add(1)
	instType := s.currentInstType()

	tasks := []struct {
		name string
		run  func(context.Context) error
	}{
		{"tickers", func(ctx context.Context) error { return s.fetchTickers(ctx, instType) }},
		{"balance", s.fetchBalance},
		{"positions", s.fetchPositions},
		{"orders", s.fetchOrders},
	}

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	for _, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := task.run(ctx); err != nil {
				failed.Add(1)
				if ctx.Err() == nil {
					s.logger.Errorf("%s: can't fetch %s", err, task.name)
				}
			}
		}()
	}
	wg.Wait()

	s.logger.Debugf("poll cycle %d complete: tasks %d, failed %d, duration %s",
		cycle, len(tasks), failed.Load(), time.Since(start))
}
