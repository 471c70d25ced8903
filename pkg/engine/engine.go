package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erain9/crossbook/pkg/core"
	"github.com/google/uuid"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
)

// Defaults for the ingestion queue
const (
	DefaultQueueCapacity = 10_000
	DefaultRetrySlice    = 500 * time.Millisecond
)

// Config holds the engine's concurrency knobs
type Config struct {
	// QueueCapacity bounds the ingestion queue
	QueueCapacity int
	// Workers is the number of dequeuing workers
	Workers int
	// RetrySlice is how long a full-queue submit waits before retrying
	RetrySlice time.Duration
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		QueueCapacity: DefaultQueueCapacity,
		Workers:       runtime.NumCPU(),
		RetrySlice:    DefaultRetrySlice,
	}
}

func (c Config) withDefaults() Config {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.RetrySlice <= 0 {
		c.RetrySlice = DefaultRetrySlice
	}
	return c
}

// Engine feeds one order book from a bounded ingestion queue through a
// fixed worker pool. One Engine is constructed per instrument; it has an
// explicit Start/Stop lifecycle and no global state.
//
// Acceptance by Submit means "queued for matching", not "matched". The
// only total order the engine guarantees is dequeue order; concurrent
// submitters race for queue slots.
type Engine struct {
	cfg       Config
	book      *core.OrderBook
	queue     chan core.Order
	stopCh    chan struct{}
	wg        sync.WaitGroup
	started   atomic.Bool
	stopped   atomic.Bool
	processed atomic.Int64
	logger    zerolog.Logger
}

// New creates an Engine over the given order book
func New(book *core.OrderBook, cfg Config, logger zerolog.Logger) *Engine {
	cfg = cfg.withDefaults()

	return &Engine{
		cfg:    cfg,
		book:   book,
		queue:  make(chan core.Order, cfg.QueueCapacity),
		stopCh: make(chan struct{}),
		logger: logger.With().Str("component", "engine").Logger(),
	}
}

// Start launches the worker pool. Calling Start twice is a no-op.
func (e *Engine) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}

	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}

	e.logger.Info().
		Int("workers", e.cfg.Workers).
		Int("queue_capacity", e.cfg.QueueCapacity).
		Msg("Matching engine started")
}

// Stop stops accepting new input and waits for workers to finish. A
// matching step already in progress completes before its worker exits,
// so the book is never left half-updated. Orders still queued at stop
// are dropped; already-resting orders remain in the book.
func (e *Engine) Stop() {
	if !e.stopped.CompareAndSwap(false, true) {
		return
	}

	close(e.stopCh)
	e.wg.Wait()

	e.logger.Info().
		Int64("processed", e.processed.Load()).
		Int("dropped", len(e.queue)).
		Msg("Matching engine stopped")
}

// Submit validates the order defensively, assigns it an ID and enqueues
// it for matching. When the queue is full it waits one retry slice, logs
// the backpressure signal and tries again; there is no caller-visible
// deadline. A canceled ctx drops the order and surfaces
// ErrSubmissionCanceled; retrying is the caller's decision.
func (e *Engine) Submit(ctx context.Context, side core.Side, price fpdecimal.Decimal, amount int64) (core.Order, error) {
	if e.stopped.Load() {
		return core.Order{}, core.ErrEngineStopped
	}

	order, err := core.NewOrder(uuid.NewString(), side, price, amount)
	if err != nil {
		return core.Order{}, err
	}

	attempts := 0
	for {
		select {
		case e.queue <- order:
			return order, nil
		case <-e.stopCh:
			return core.Order{}, core.ErrEngineStopped
		case <-ctx.Done():
			return core.Order{}, fmt.Errorf("%w: %v", core.ErrSubmissionCanceled, ctx.Err())
		case <-time.After(e.cfg.RetrySlice):
			attempts++
			e.logger.Warn().
				Str("order_id", order.ID()).
				Int("attempts", attempts).
				Msg("Ingestion queue full, retrying")
		}
	}
}

// QueueDepth returns the number of orders waiting to be matched
func (e *Engine) QueueDepth() int {
	return len(e.queue)
}

// Book returns the engine's order book
func (e *Engine) Book() *core.OrderBook {
	return e.book
}

// TopOfBook returns up to n aggregated price levels per side
func (e *Engine) TopOfBook(n int) (*core.TopOfBook, error) {
	return e.book.TopOfBook(n)
}

// MatchHistory returns a copy of the full match ledger
func (e *Engine) MatchHistory() []core.MatchRecord {
	return e.book.Ledger().History()
}

// LatestMatches returns the last min(n, size) ledger records
func (e *Engine) LatestMatches(n int) ([]core.MatchRecord, error) {
	return e.book.Ledger().Latest(n)
}

func (e *Engine) worker(id int) {
	defer e.wg.Done()

	logger := e.logger.With().Int("worker", id).Logger()

	for {
		select {
		case <-e.stopCh:
			return
		case order := <-e.queue:
			e.processOne(logger, order)
		}
	}
}

// processOne runs one matching step. A fault inside the step is contained
// here: the step is abandoned, logged and the worker moves on to the next
// queued order.
func (e *Engine) processOne(logger zerolog.Logger, order core.Order) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("order_id", order.ID()).
				Interface("panic", r).
				Msg("Matching step abandoned")
		}
	}()

	if _, err := e.book.Process(context.Background(), order); err != nil {
		logger.Error().Err(err).Str("order_id", order.ID()).Msg("Failed to process order")
		return
	}

	if n := e.processed.Add(1); n%100 == 0 {
		logger.Debug().Int64("processed", n).Int("queue_depth", len(e.queue)).Msg("Queue progress")
	}
}
