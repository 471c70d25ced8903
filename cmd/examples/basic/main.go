package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"

	"github.com/erain9/crossbook/pkg/backend/memory"
	"github.com/erain9/crossbook/pkg/core"
	"github.com/erain9/crossbook/pkg/engine"
	"github.com/erain9/crossbook/pkg/ledger"
)

func main() {
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()

	// Assemble a book with an in-memory backend and ledger
	book := core.NewOrderBook(memory.NewMemoryBackend(), ledger.NewMemoryLedger(), nil)
	eng := engine.New(book, engine.DefaultConfig(), logger)
	eng.Start()

	ctx := context.Background()

	// Submit a resting sell order
	sellOrder, err := eng.Submit(ctx, core.Sell, fpdecimal.FromFloat(10.0), 10)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Submitted sell order: %s\n", sellOrder.ID())

	// Submit a crossing buy order
	buyOrder, err := eng.Submit(ctx, core.Buy, fpdecimal.FromFloat(10.0), 5)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Submitted buy order: %s\n", buyOrder.ID())

	// Matching is asynchronous, wait for both orders to drain
	for book.Ledger().Size() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	eng.Stop()

	// Print the results
	for _, match := range book.Ledger().History() {
		fmt.Printf("Trade executed: buy=%s sell=%s amount=%d\n",
			match.BuyPrice.String(), match.SellPrice.String(), match.Amount)
	}

	top, err := book.TopOfBook(0)
	if err != nil {
		panic(err)
	}

	fmt.Println("\nRemaining book:")
	for _, level := range top.SellLevels {
		fmt.Printf("- ASK: Price=%s, Amount=%d\n", level.Price.String(), level.Amount)
	}
	for _, level := range top.BuyLevels {
		fmt.Printf("- BID: Price=%s, Amount=%d\n", level.Price.String(), level.Amount)
	}
}
