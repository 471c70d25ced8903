package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/erain9/crossbook/pkg/core"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(amount int64) core.MatchRecord {
	return core.MatchRecord{
		BuyPrice:  fpdecimal.FromFloat(100.0),
		SellPrice: fpdecimal.FromFloat(99.0),
		Amount:    amount,
	}
}

func TestFanout_DeliversToAllSubscribers(t *testing.T) {
	fanout := NewFanout(zerolog.Nop(), 0)

	var mu sync.Mutex
	received := make(map[int][]core.MatchRecord)
	for i := 0; i < 2; i++ {
		idx := i
		fanout.Subscribe(func(record core.MatchRecord) {
			mu.Lock()
			received[idx] = append(received[idx], record)
			mu.Unlock()
		})
	}
	fanout.Start()

	for i := int64(1); i <= 3; i++ {
		fanout.OnMatch(testRecord(i))
	}
	fanout.Stop()

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i < 2; i++ {
		require.Len(t, received[i], 3, "subscriber %d", i)
		// Delivery preserves execution order
		for j, record := range received[i] {
			assert.Equal(t, int64(j+1), record.Amount)
		}
	}
}

func TestFanout_OnMatchNeverBlocks(t *testing.T) {
	// No delivery goroutine is running, so the buffer fills and the rest
	// is dropped.
	fanout := NewFanout(zerolog.Nop(), 2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			fanout.OnMatch(testRecord(1))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnMatch blocked")
	}

	assert.Equal(t, int64(8), fanout.dropped.Load())
}

func TestFanout_OnMatchAfterStopIsDropped(t *testing.T) {
	fanout := NewFanout(zerolog.Nop(), 4)

	var mu sync.Mutex
	var count int
	fanout.Subscribe(func(core.MatchRecord) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	fanout.Start()
	fanout.OnMatch(testRecord(1))
	fanout.Stop()

	// Late records are swallowed, never delivered
	fanout.OnMatch(testRecord(2))
	fanout.OnMatch(testRecord(3))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(2), fanout.dropped.Load())
}

func TestFanout_StopDrainsBufferedRecords(t *testing.T) {
	fanout := NewFanout(zerolog.Nop(), 16)

	var mu sync.Mutex
	var count int
	fanout.Subscribe(func(core.MatchRecord) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	// Buffer before starting, then let the goroutine catch up
	for i := 0; i < 5; i++ {
		fanout.OnMatch(testRecord(1))
	}
	fanout.Start()
	fanout.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, count)
}
