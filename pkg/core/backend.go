package core

import "github.com/nikolaydubina/fpdecimal"

// BookBackend defines the storage interface driven by the matching step.
// Implementations must be safe for concurrent reads (TopLevels, SideVolume)
// racing with the serialized matching step; all mutation happens from
// inside that step only.
type BookBackend interface {
	// BestPrice returns the most favorable price on the given side:
	// highest bid for Buy, lowest ask for Sell. ok is false when the
	// side is empty.
	BestPrice(side Side) (price fpdecimal.Decimal, ok bool)

	// HeadOrder returns the oldest resting order at the given level.
	HeadOrder(side Side, price fpdecimal.Decimal) (Order, bool)

	// ReplaceHead swaps the head order of the level for a reduced
	// replacement, preserving its time priority.
	ReplaceHead(side Side, price fpdecimal.Decimal, order Order)

	// PopHead removes the fully filled head order and drops the price
	// level once its queue is empty.
	PopHead(side Side, price fpdecimal.Decimal)

	// AppendToSide rests an order at the back of its price level's
	// queue, creating the level if absent.
	AppendToSide(side Side, order Order)

	// TopLevels returns up to n aggregated price levels, most favorable
	// first.
	TopLevels(side Side, n int) []PriceLevel

	// SideVolume returns the total resting amount on a side.
	SideVolume(side Side) int64
}

// MatchLedger is the append-only trade history. Append is called exactly
// once per executed pairing from inside the matching critical section, so
// ledger order equals execution order.
type MatchLedger interface {
	Append(record MatchRecord)
	History() []MatchRecord
	Latest(n int) ([]MatchRecord, error)
	Size() int
}

// NotificationSink is notified once per executed pairing from inside the
// matching step. Implementations must not block; slow consumers belong
// behind an asynchronous fan-out.
type NotificationSink interface {
	OnMatch(record MatchRecord)
}
