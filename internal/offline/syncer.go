package offline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ariefcatur/go-restaurant-pos/internal/logger"
)

// Syncer drives Queue.Flush from a ticker and from reconnect events. A
// reconnect is an offline -> online edge seen by the health probe.
type Syncer struct {
	Queue         *Queue
	Probe         func(ctx context.Context) error
	FlushInterval time.Duration
	ProbeInterval time.Duration
	Log           *logger.Logger

	online atomic.Bool
}

func (s *Syncer) Online() bool { return s.online.Load() }

// Run blocks until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	flushT := time.NewTicker(s.FlushInterval)
	defer flushT.Stop()
	probeT := time.NewTicker(s.ProbeInterval)
	defer probeT.Stop()

	s.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-probeT.C:
			s.probe(ctx)
		case <-flushT.C:
			if s.Online() {
				s.flush(ctx, "timer")
			}
		}
	}
}

func (s *Syncer) probe(ctx context.Context) {
	err := s.Probe(ctx)
	was := s.online.Swap(err == nil)
	switch {
	case err == nil && !was:
		s.Log.Info("pos_online", "api reachable, flushing offline queue")
		s.flush(ctx, "reconnect")
	case err != nil && was:
		s.Log.Warn("pos_offline", "api unreachable, orders will be queued", "error", err.Error())
	}
}

func (s *Syncer) flush(ctx context.Context, trigger string) {
	rep, err := s.Queue.Flush(ctx)
	if err != nil {
		s.Log.Error("offline_flush_failed", "flush aborted", err, "trigger", trigger)
		return
	}
	if rep.Synced+rep.Failed > 0 {
		s.Log.Info("offline_flushed", "flush finished", "trigger", trigger,
			"synced", rep.Synced, "failed", rep.Failed, "skipped", rep.Skipped, "parked", rep.Parked)
	}
}
