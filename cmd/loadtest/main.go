package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/erain9/crossbook/pkg/backend/memory"
	"github.com/erain9/crossbook/pkg/core"
	"github.com/erain9/crossbook/pkg/engine"
	"github.com/erain9/crossbook/pkg/ledger"
)

func main() {
	numWorkers := flag.Int("workers", 100, "Number of concurrent submitters")
	ordersPerWorker := flag.Int("orders", 1000, "Orders submitted per worker")
	maxRate := flag.Int("rate", 50000, "Maximum submissions per second")
	flag.Parse()

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Println("Received interrupt signal, cleaning up...")
		cancel()
	}()

	book := core.NewOrderBook(memory.NewMemoryBackend(), ledger.NewMemoryLedger(), nil)
	eng := engine.New(book, engine.DefaultConfig(), logger)
	eng.Start()

	limiter := rate.NewLimiter(rate.Limit(*maxRate), *maxRate)

	// Submit latency in microseconds, one histogram per worker to avoid
	// contention, merged at the end.
	histograms := make([]*hdrhistogram.Histogram, *numWorkers)
	var wg sync.WaitGroup
	errChan := make(chan error, (*numWorkers)*(*ordersPerWorker))

	total := (*numWorkers) * (*ordersPerWorker)
	start := time.Now()
	log.Printf("Starting %d workers, %d orders per worker...", *numWorkers, *ordersPerWorker)

	for i := 0; i < *numWorkers; i++ {
		wg.Add(1)
		histograms[i] = hdrhistogram.New(1, 10_000_000, 3)
		go func(workerID int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
			hist := histograms[workerID]

			for j := 0; j < *ordersPerWorker; j++ {
				if err := limiter.Wait(ctx); err != nil {
					errChan <- fmt.Errorf("rate limiter error: %v", err)
					return
				}

				side, price := randomOrder(r)
				submitStart := time.Now()
				_, err := eng.Submit(ctx, side, price, 1)
				if err != nil {
					errChan <- fmt.Errorf("failed to submit order: %v", err)
					continue
				}
				_ = hist.RecordValue(time.Since(submitStart).Microseconds())
			}
		}(i)
	}

	wg.Wait()
	submitDuration := time.Since(start)

	// Wait for the queue to drain before stopping
	for eng.QueueDepth() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	eng.Stop()
	totalDuration := time.Since(start)
	close(errChan)

	var errors []error
	for err := range errChan {
		errors = append(errors, err)
	}

	merged := hdrhistogram.New(1, 10_000_000, 3)
	for _, hist := range histograms {
		merged.Merge(hist)
	}

	// Print results
	log.Printf("Load test completed: submit phase %v, total %v", submitDuration, totalDuration)
	log.Printf("Total orders attempted: %d", total)
	log.Printf("Errors encountered: %d", len(errors))
	log.Printf("Executed pairings: %d", book.Ledger().Size())
	log.Printf("Submit latency (us): p50=%d p90=%d p99=%d p99.9=%d max=%d",
		merged.ValueAtQuantile(50),
		merged.ValueAtQuantile(90),
		merged.ValueAtQuantile(99),
		merged.ValueAtQuantile(99.9),
		merged.Max())
	log.Printf("Throughput: %.0f orders/sec", float64(total)/totalDuration.Seconds())

	if len(errors) > 0 {
		log.Printf("First error: %v", errors[0])
		os.Exit(1)
	}
}

// randomOrder picks a side and a price near 100.00 so the two sides cross
// often enough to exercise the matching path.
func randomOrder(r *rand.Rand) (core.Side, fpdecimal.Decimal) {
	side := core.Buy
	if r.Float64() < 0.5 {
		side = core.Sell
	}

	price := fpdecimal.FromFloat(99.50 + float64(r.Intn(100))/100.0)
	return side, price
}
