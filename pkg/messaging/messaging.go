package messaging

import (
	"context"

	"github.com/erain9/crossbook/pkg/core"
)

// MatchSender defines an interface for publishing executed matches.
// This helps decouple the engine's fan-out from specific implementations
// like Kafka in the queue package.
type MatchSender interface {
	SendMatchMessage(ctx context.Context, msg *MatchMessage) error
	Close() error
}

// MatchMessage is the wire form of one executed pairing. Both
// counterparties' raw prices are carried; no single trade price exists.
type MatchMessage struct {
	BuyPrice  string `json:"buyPrice"`
	SellPrice string `json:"sellPrice"`
	Amount    int64  `json:"amount"`
}

// NewMatchMessage converts a ledger record to its wire form
func NewMatchMessage(record core.MatchRecord) *MatchMessage {
	return &MatchMessage{
		BuyPrice:  record.BuyPrice.String(),
		SellPrice: record.SellPrice.String(),
		Amount:    record.Amount,
	}
}
