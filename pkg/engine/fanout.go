package engine

import (
	"sync"
	"sync/atomic"

	"github.com/erain9/crossbook/pkg/core"
	"github.com/rs/zerolog"
)

// DefaultFanoutBuffer is the size of the fan-out channel
const DefaultFanoutBuffer = 1024

// Fanout implements core.NotificationSink. OnMatch is called from inside
// the matching critical section, so it must not block: the record is
// handed to a buffered channel and delivered to subscribers from a
// dedicated goroutine. When the buffer is full the record is dropped and
// counted; delivery is best-effort display semantics, the ledger is the
// durable history.
type Fanout struct {
	ch          chan core.MatchRecord
	subscribers []func(core.MatchRecord)
	done        chan struct{}
	startOnce   sync.Once
	stopOnce    sync.Once
	stopped     atomic.Bool
	dropped     atomic.Int64
	logger      zerolog.Logger
}

// NewFanout creates a Fanout with the given buffer size; buffer <= 0
// means DefaultFanoutBuffer.
func NewFanout(logger zerolog.Logger, buffer int) *Fanout {
	if buffer <= 0 {
		buffer = DefaultFanoutBuffer
	}

	return &Fanout{
		ch:     make(chan core.MatchRecord, buffer),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "fanout").Logger(),
	}
}

// Subscribe registers a delivery function. Must be called before Start.
func (f *Fanout) Subscribe(fn func(core.MatchRecord)) {
	f.subscribers = append(f.subscribers, fn)
}

// Start launches the delivery goroutine
func (f *Fanout) Start() {
	f.startOnce.Do(func() {
		go f.run()
	})
}

// Stop drains buffered records and stops delivery. Callers stop the
// engine first so no matching step is still publishing; OnMatch after
// Stop is counted as dropped.
func (f *Fanout) Stop() {
	f.stopOnce.Do(func() {
		f.stopped.Store(true)
		close(f.ch)
		<-f.done

		if n := f.dropped.Load(); n > 0 {
			f.logger.Warn().Int64("dropped", n).Msg("Match notifications dropped")
		}
	})
}

// OnMatch hands a record to the delivery goroutine without blocking.
// Records arriving after Stop are dropped.
func (f *Fanout) OnMatch(record core.MatchRecord) {
	if f.stopped.Load() {
		f.dropped.Add(1)
		return
	}

	select {
	case f.ch <- record:
	default:
		f.dropped.Add(1)
	}
}

func (f *Fanout) run() {
	defer close(f.done)

	for record := range f.ch {
		for _, fn := range f.subscribers {
			fn(record)
		}
	}
}

var _ core.NotificationSink = (*Fanout)(nil)
