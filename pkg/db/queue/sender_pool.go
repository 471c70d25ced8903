package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/erain9/crossbook/pkg/messaging"
)

var (
	senderPool   chan messaging.MatchSender
	poolInitOnce sync.Once
	maxPoolSize  = 32
)

// initSenderPool initializes the sender pool
func initSenderPool() {
	poolInitOnce.Do(func() {
		senderPool = make(chan messaging.MatchSender, maxPoolSize)
		for i := 0; i < maxPoolSize; i++ {
			sender, err := NewQueueMatchSender()
			if err != nil {
				fmt.Printf("Error creating sender: %v\n", err)
				continue
			}
			if sender != nil {
				senderPool <- sender
			}
		}
	})
}

// GetSender gets a sender from the pool
func GetSender() messaging.MatchSender {
	initSenderPool()

	select {
	case sender := <-senderPool:
		return sender
	default:
		fmt.Printf("Warning: sender pool is empty\n")
		return nil
	}
}

// ReturnSender returns a sender to the pool
func ReturnSender(sender messaging.MatchSender) {
	if sender == nil {
		return
	}

	select {
	case senderPool <- sender:
	default:
		fmt.Printf("Warning: sender pool is full\n")
		_ = sender.Close()
	}
}

// SendMessage sends a match message using a pooled sender
func SendMessage(ctx context.Context, msg *messaging.MatchMessage) error {
	sender := GetSender()
	if sender == nil {
		return fmt.Errorf("failed to get match sender from pool")
	}
	defer ReturnSender(sender)

	err := sender.SendMatchMessage(ctx, msg)
	if err != nil {
		// A failed sender is likely a dead connection, drop it
		_ = sender.Close()
		return err
	}

	return nil
}
