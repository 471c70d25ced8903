package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/erain9/crossbook/pkg/otel"
	"github.com/nikolaydubina/fpdecimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultTopLevels is the number of price levels returned by TopOfBook
// when no limit is given.
const DefaultTopLevels = 10

// OrderBook implements price-time priority matching over a BookBackend.
//
// Processing of one incoming order is a single atomic unit with respect to
// the book: the whole step runs under one mutex, so the resulting trade
// sequence equals the sequence produced by committing orders one at a time
// in dequeue order. Top-of-book queries read the backend without taking
// that mutex and may race benignly with an in-flight step.
type OrderBook struct {
	mu      sync.Mutex
	backend BookBackend
	ledger  MatchLedger
	sink    NotificationSink
}

// NewOrderBook creates an OrderBook over the given backend and ledger.
// sink may be nil when no match notifications are wanted.
func NewOrderBook(backend BookBackend, ledger MatchLedger, sink NotificationSink) *OrderBook {
	return &OrderBook{
		backend: backend,
		ledger:  ledger,
		sink:    sink,
	}
}

// Process matches one incoming order against the book and rests any
// remainder. It is safe to call from multiple workers concurrently; steps
// are serialized internally.
func (ob *OrderBook) Process(ctx context.Context, order Order) (*Done, error) {
	_, span := otel.StartOrderSpan(ctx, otel.SpanProcessOrder,
		attribute.String(otel.AttributeOrderID, order.ID()),
		attribute.String(otel.AttributeOrderSide, order.Side().String()),
		attribute.String(otel.AttributeOrderPrice, order.Price().String()),
		attribute.Int64(otel.AttributeOrderAmount, order.Amount()),
	)
	defer span.End()

	if order.Side() != Buy && order.Side() != Sell {
		otel.SetSpanStatus(span, codes.Error, "invalid side")
		return nil, ErrInvalidSide
	}

	if order.Price().LessThan(fpdecimal.Zero) {
		otel.SetSpanStatus(span, codes.Error, "invalid price")
		return nil, ErrInvalidPrice
	}

	if order.Amount() < 1 {
		otel.SetSpanStatus(span, codes.Error, "invalid amount")
		return nil, ErrInvalidAmount
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	done := newDone(order)
	opposite := order.Side().Opposite()
	remaining := order.Amount()

	for remaining > 0 {
		bestPrice, ok := ob.backend.BestPrice(opposite)
		if !ok {
			break
		}

		if !crosses(order.Side(), order.Price(), bestPrice) {
			break
		}

		head, ok := ob.backend.HeadOrder(opposite, bestPrice)
		if !ok {
			// Empty levels are dropped eagerly, so a best price always
			// has a head inside the serialized step.
			break
		}

		matched := min(remaining, head.Amount())
		record := newMatchRecord(order, head, matched)

		ob.ledger.Append(record)
		done.appendMatch(record)

		remaining -= matched
		if head.Amount() == matched {
			ob.backend.PopHead(opposite, bestPrice)
		} else {
			ob.backend.ReplaceHead(opposite, bestPrice, head.Reduce(matched))
		}

		if ob.sink != nil {
			ob.sink.OnMatch(record)
		}
	}

	if remaining > 0 {
		ob.backend.AppendToSide(order.Side(), order.Reduce(order.Amount()-remaining))
		done.Stored = true
	}
	done.Left = remaining

	otel.AddAttributes(span,
		attribute.Int64(otel.AttributeExecutedAmount, done.Processed),
		attribute.Int64(otel.AttributeRemainingAmount, done.Left),
		attribute.Int(otel.AttributeMatchCount, len(done.Matches)),
	)
	otel.SetSpanStatus(span, codes.Ok, "order processed")
	otel.GetOrderBookMetrics().RecordMatches(ctx, order.Side().String(), int64(len(done.Matches)))

	return done, nil
}

// TopOfBook returns up to n aggregated price levels per side, most
// favorable first. n == 0 means DefaultTopLevels. The snapshot is
// best-effort and does not hold the matching critical section.
func (ob *OrderBook) TopOfBook(n int) (*TopOfBook, error) {
	if n < 0 {
		return nil, ErrInvalidLimit
	}

	if n == 0 {
		n = DefaultTopLevels
	}

	return &TopOfBook{
		BuyLevels:  ob.backend.TopLevels(Buy, n),
		SellLevels: ob.backend.TopLevels(Sell, n),
	}, nil
}

// SideVolume returns the total resting amount on a side.
func (ob *OrderBook) SideVolume(side Side) int64 {
	return ob.backend.SideVolume(side)
}

// Ledger returns the book's match ledger.
func (ob *OrderBook) Ledger() MatchLedger {
	return ob.ledger
}

// String implements fmt.Stringer interface
func (ob *OrderBook) String() string {
	builder := strings.Builder{}

	builder.WriteString("Ask:")
	for _, level := range ob.backend.TopLevels(Sell, DefaultTopLevels) {
		builder.WriteString(fmt.Sprintf("\n%s -> amount: %d", level.Price.String(), level.Amount))
	}
	builder.WriteString("\n")

	builder.WriteString("Bid:")
	for _, level := range ob.backend.TopLevels(Buy, DefaultTopLevels) {
		builder.WriteString(fmt.Sprintf("\n%s -> amount: %d", level.Price.String(), level.Amount))
	}
	builder.WriteString("\n")

	return builder.String()
}

// crosses checks whether the incoming price reaches the best opposite price
func crosses(side Side, orderPrice, bookPrice fpdecimal.Decimal) bool {
	if side == Buy {
		return orderPrice.GreaterThanOrEqual(bookPrice)
	}
	return orderPrice.LessThanOrEqual(bookPrice)
}

// newMatchRecord records both counterparties' raw prices; no single
// execution price is derived.
func newMatchRecord(incoming, resting Order, matched int64) MatchRecord {
	if incoming.Side() == Buy {
		return MatchRecord{
			BuyPrice:  incoming.Price(),
			SellPrice: resting.Price(),
			Amount:    matched,
		}
	}
	return MatchRecord{
		BuyPrice:  resting.Price(),
		SellPrice: incoming.Price(),
		Amount:    matched,
	}
}
