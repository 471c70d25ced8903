package core

import (
	"context"
	"sort"
	"testing"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLevel is one price level, orders in arrival order
type mockLevel struct {
	price  fpdecimal.Decimal
	orders []Order
}

// mockBackend implements BookBackend for testing
type mockBackend struct {
	bids []*mockLevel
	asks []*mockLevel
}

func newMockBackend() *mockBackend {
	return &mockBackend{}
}

func (m *mockBackend) levels(side Side) *[]*mockLevel {
	if side == Buy {
		return &m.bids
	}
	return &m.asks
}

func (m *mockBackend) sortSide(side Side) {
	levels := *m.levels(side)
	sort.Slice(levels, func(i, j int) bool {
		if side == Buy {
			return levels[i].price.GreaterThan(levels[j].price)
		}
		return levels[i].price.LessThan(levels[j].price)
	})
}

func (m *mockBackend) findLevel(side Side, price fpdecimal.Decimal) *mockLevel {
	for _, level := range *m.levels(side) {
		if level.price == price {
			return level
		}
	}
	return nil
}

func (m *mockBackend) BestPrice(side Side) (fpdecimal.Decimal, bool) {
	levels := *m.levels(side)
	if len(levels) == 0 {
		return fpdecimal.Zero, false
	}
	return levels[0].price, true
}

func (m *mockBackend) HeadOrder(side Side, price fpdecimal.Decimal) (Order, bool) {
	level := m.findLevel(side, price)
	if level == nil || len(level.orders) == 0 {
		return Order{}, false
	}
	return level.orders[0], true
}

func (m *mockBackend) ReplaceHead(side Side, price fpdecimal.Decimal, order Order) {
	if level := m.findLevel(side, price); level != nil && len(level.orders) > 0 {
		level.orders[0] = order
	}
}

func (m *mockBackend) PopHead(side Side, price fpdecimal.Decimal) {
	level := m.findLevel(side, price)
	if level == nil || len(level.orders) == 0 {
		return
	}

	level.orders = level.orders[1:]
	if len(level.orders) == 0 {
		levels := m.levels(side)
		for i, l := range *levels {
			if l == level {
				*levels = append((*levels)[:i], (*levels)[i+1:]...)
				break
			}
		}
	}
}

func (m *mockBackend) AppendToSide(side Side, order Order) {
	if level := m.findLevel(side, order.Price()); level != nil {
		level.orders = append(level.orders, order)
		return
	}

	levels := m.levels(side)
	*levels = append(*levels, &mockLevel{price: order.Price(), orders: []Order{order}})
	m.sortSide(side)
}

func (m *mockBackend) TopLevels(side Side, n int) []PriceLevel {
	result := make([]PriceLevel, 0, n)
	for _, level := range *m.levels(side) {
		if len(result) == n {
			break
		}
		var amount int64
		for _, order := range level.orders {
			amount += order.Amount()
		}
		result = append(result, PriceLevel{Price: level.price, Amount: amount, Side: side})
	}
	return result
}

func (m *mockBackend) SideVolume(side Side) int64 {
	var total int64
	for _, level := range *m.levels(side) {
		for _, order := range level.orders {
			total += order.Amount()
		}
	}
	return total
}

// testLedger is an in-package slice ledger
type testLedger struct {
	records []MatchRecord
}

func (l *testLedger) Append(record MatchRecord) {
	l.records = append(l.records, record)
}

func (l *testLedger) History() []MatchRecord {
	return append([]MatchRecord(nil), l.records...)
}

func (l *testLedger) Latest(n int) ([]MatchRecord, error) {
	if n < 0 {
		return nil, ErrInvalidLimit
	}
	if n > len(l.records) {
		n = len(l.records)
	}
	return append([]MatchRecord(nil), l.records[len(l.records)-n:]...), nil
}

func (l *testLedger) Size() int {
	return len(l.records)
}

// recordingSink counts notifications
type recordingSink struct {
	records []MatchRecord
}

func (s *recordingSink) OnMatch(record MatchRecord) {
	s.records = append(s.records, record)
}

func newTestBook() (*OrderBook, *mockBackend, *testLedger, *recordingSink) {
	backend := newMockBackend()
	ledger := &testLedger{}
	sink := &recordingSink{}
	return NewOrderBook(backend, ledger, sink), backend, ledger, sink
}

func mustOrder(t *testing.T, id string, side Side, price float64, amount int64) Order {
	t.Helper()
	order, err := NewOrder(id, side, fpdecimal.FromFloat(price), amount)
	require.NoError(t, err)
	return order
}

func TestProcess_RestsWhenNoCross(t *testing.T) {
	book, backend, ledger, _ := newTestBook()
	ctx := context.Background()

	done, err := book.Process(ctx, mustOrder(t, "buy-1", Buy, 90.0, 10))
	require.NoError(t, err)

	assert.Empty(t, done.Matches)
	assert.True(t, done.Stored)
	assert.Equal(t, int64(10), done.Left)
	assert.Equal(t, int64(0), done.Processed)
	assert.Equal(t, int64(10), backend.SideVolume(Buy))
	assert.Equal(t, 0, ledger.Size())

	// A sell above the bid rests too, the book stays uncrossed
	done, err = book.Process(ctx, mustOrder(t, "sell-1", Sell, 95.0, 5))
	require.NoError(t, err)
	assert.Empty(t, done.Matches)
	assert.True(t, done.Stored)
	assert.Equal(t, int64(5), backend.SideVolume(Sell))
}

func TestProcess_FullFill(t *testing.T) {
	book, backend, ledger, sink := newTestBook()
	ctx := context.Background()

	_, err := book.Process(ctx, mustOrder(t, "sell-1", Sell, 100.0, 10))
	require.NoError(t, err)

	done, err := book.Process(ctx, mustOrder(t, "buy-1", Buy, 100.0, 10))
	require.NoError(t, err)

	require.Len(t, done.Matches, 1)
	assert.Equal(t, int64(10), done.Matches[0].Amount)
	assert.Equal(t, int64(10), done.Processed)
	assert.Equal(t, int64(0), done.Left)
	assert.False(t, done.Stored)

	assert.Equal(t, int64(0), backend.SideVolume(Buy))
	assert.Equal(t, int64(0), backend.SideVolume(Sell))
	assert.Equal(t, 1, ledger.Size())
	assert.Len(t, sink.records, 1)
}

func TestProcess_PartialFillReplacesHead(t *testing.T) {
	book, backend, _, _ := newTestBook()
	ctx := context.Background()

	_, err := book.Process(ctx, mustOrder(t, "sell-1", Sell, 100.0, 10))
	require.NoError(t, err)

	done, err := book.Process(ctx, mustOrder(t, "buy-1", Buy, 100.0, 4))
	require.NoError(t, err)

	require.Len(t, done.Matches, 1)
	assert.Equal(t, int64(4), done.Matches[0].Amount)
	assert.False(t, done.Stored)

	// The resting order was replaced, not mutated: same ID, smaller amount
	head, ok := backend.HeadOrder(Sell, fpdecimal.FromFloat(100.0))
	require.True(t, ok)
	assert.Equal(t, "sell-1", head.ID())
	assert.Equal(t, int64(6), head.Amount())
}

func TestProcess_WalksLevelsAndRestsRemainder(t *testing.T) {
	book, backend, ledger, _ := newTestBook()
	ctx := context.Background()

	_, err := book.Process(ctx, mustOrder(t, "sell-1", Sell, 90.0, 5))
	require.NoError(t, err)
	_, err = book.Process(ctx, mustOrder(t, "sell-2", Sell, 95.0, 5))
	require.NoError(t, err)

	done, err := book.Process(ctx, mustOrder(t, "buy-1", Buy, 95.0, 12))
	require.NoError(t, err)

	require.Len(t, done.Matches, 2)
	assert.Equal(t, int64(10), done.Processed)
	assert.Equal(t, int64(2), done.Left)
	assert.True(t, done.Stored)

	// Both raw prices are preserved, no single execution price is derived
	first := done.Matches[0]
	assert.Equal(t, fpdecimal.FromFloat(95.0), first.BuyPrice)
	assert.Equal(t, fpdecimal.FromFloat(90.0), first.SellPrice)
	second := done.Matches[1]
	assert.Equal(t, fpdecimal.FromFloat(95.0), second.BuyPrice)
	assert.Equal(t, fpdecimal.FromFloat(95.0), second.SellPrice)

	assert.Equal(t, done.Matches, ledger.History())
	assert.Equal(t, int64(2), backend.SideVolume(Buy))
	assert.Equal(t, int64(0), backend.SideVolume(Sell))
}

func TestProcess_ConsumesMultipleOrdersAtOneLevel(t *testing.T) {
	book, backend, ledger, _ := newTestBook()
	ctx := context.Background()

	_, err := book.Process(ctx, mustOrder(t, "buy-1", Buy, 100.0, 5))
	require.NoError(t, err)
	_, err = book.Process(ctx, mustOrder(t, "buy-2", Buy, 100.0, 5))
	require.NoError(t, err)

	// One step pops the filled head and continues at the same level
	done, err := book.Process(ctx, mustOrder(t, "sell-1", Sell, 100.0, 7))
	require.NoError(t, err)

	require.Len(t, done.Matches, 2)
	assert.Equal(t, int64(5), done.Matches[0].Amount)
	assert.Equal(t, int64(2), done.Matches[1].Amount)
	assert.Equal(t, int64(7), done.Processed)
	assert.Equal(t, int64(0), done.Left)
	assert.False(t, done.Stored)
	assert.Equal(t, 2, ledger.Size())

	// buy-1 filled in FIFO order; buy-2 remains with the rest
	head, ok := backend.HeadOrder(Buy, fpdecimal.FromFloat(100.0))
	require.True(t, ok)
	assert.Equal(t, "buy-2", head.ID())
	assert.Equal(t, int64(3), head.Amount())
	assert.Equal(t, int64(0), backend.SideVolume(Sell))
}

func TestProcess_IncomingSellRecordsRestingBuyPrice(t *testing.T) {
	book, _, _, _ := newTestBook()
	ctx := context.Background()

	_, err := book.Process(ctx, mustOrder(t, "buy-1", Buy, 100.0, 5))
	require.NoError(t, err)

	done, err := book.Process(ctx, mustOrder(t, "sell-1", Sell, 90.0, 5))
	require.NoError(t, err)

	require.Len(t, done.Matches, 1)
	assert.Equal(t, fpdecimal.FromFloat(100.0), done.Matches[0].BuyPrice)
	assert.Equal(t, fpdecimal.FromFloat(90.0), done.Matches[0].SellPrice)
}

func TestProcess_TimePriorityWithinLevel(t *testing.T) {
	book, backend, _, _ := newTestBook()
	ctx := context.Background()

	_, err := book.Process(ctx, mustOrder(t, "sell-1", Sell, 100.0, 3))
	require.NoError(t, err)
	_, err = book.Process(ctx, mustOrder(t, "sell-2", Sell, 100.0, 5))
	require.NoError(t, err)

	// The older order fills first and in full
	done, err := book.Process(ctx, mustOrder(t, "buy-1", Buy, 100.0, 3))
	require.NoError(t, err)
	require.Len(t, done.Matches, 1)

	head, ok := backend.HeadOrder(Sell, fpdecimal.FromFloat(100.0))
	require.True(t, ok)
	assert.Equal(t, "sell-2", head.ID())
	assert.Equal(t, int64(5), head.Amount())
}

func TestProcess_AmountConservation(t *testing.T) {
	book, backend, ledger, _ := newTestBook()
	ctx := context.Background()

	var submitted int64
	orders := []Order{
		mustOrder(t, "s-1", Sell, 100.0, 7),
		mustOrder(t, "b-1", Buy, 101.0, 3),
		mustOrder(t, "s-2", Sell, 99.0, 10),
		mustOrder(t, "b-2", Buy, 98.0, 6),
		mustOrder(t, "b-3", Buy, 100.0, 12),
		mustOrder(t, "s-3", Sell, 95.0, 4),
	}

	for _, order := range orders {
		submitted += order.Amount()
		_, err := book.Process(ctx, order)
		require.NoError(t, err)
	}

	var matched int64
	for _, record := range ledger.History() {
		matched += record.Amount
	}

	resting := backend.SideVolume(Buy) + backend.SideVolume(Sell)
	assert.Equal(t, submitted, resting+2*matched)
}

func TestProcess_NoCrossedBookRemains(t *testing.T) {
	book, backend, _, _ := newTestBook()
	ctx := context.Background()

	orders := []Order{
		mustOrder(t, "s-1", Sell, 100.0, 5),
		mustOrder(t, "b-1", Buy, 102.0, 8),
		mustOrder(t, "s-2", Sell, 101.0, 6),
		mustOrder(t, "b-2", Buy, 99.0, 4),
	}
	for _, order := range orders {
		_, err := book.Process(ctx, order)
		require.NoError(t, err)
	}

	bestBid, hasBid := backend.BestPrice(Buy)
	bestAsk, hasAsk := backend.BestPrice(Sell)
	if hasBid && hasAsk {
		assert.True(t, bestBid.LessThan(bestAsk), "book must not remain crossed")
	}
}

func TestProcess_RejectsMalformedOrder(t *testing.T) {
	book, _, ledger, _ := newTestBook()

	_, err := book.Process(context.Background(), Order{})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, 0, ledger.Size())
}

func TestProcess_NilSink(t *testing.T) {
	book := NewOrderBook(newMockBackend(), &testLedger{}, nil)
	ctx := context.Background()

	_, err := book.Process(ctx, mustOrder(t, "sell-1", Sell, 100.0, 5))
	require.NoError(t, err)

	done, err := book.Process(ctx, mustOrder(t, "buy-1", Buy, 100.0, 5))
	require.NoError(t, err)
	assert.Len(t, done.Matches, 1)
}

func TestProcess_SinkCalledOncePerPairing(t *testing.T) {
	book, _, ledger, sink := newTestBook()
	ctx := context.Background()

	_, err := book.Process(ctx, mustOrder(t, "sell-1", Sell, 90.0, 5))
	require.NoError(t, err)
	_, err = book.Process(ctx, mustOrder(t, "sell-2", Sell, 95.0, 5))
	require.NoError(t, err)

	_, err = book.Process(ctx, mustOrder(t, "buy-1", Buy, 95.0, 10))
	require.NoError(t, err)

	assert.Equal(t, ledger.History(), sink.records)
}

func TestTopOfBook(t *testing.T) {
	book, _, _, _ := newTestBook()
	ctx := context.Background()

	for i, price := range []float64{90, 91, 92, 93, 94, 95, 96, 97, 98, 99, 100, 101} {
		id := string(rune('a' + i))
		_, err := book.Process(ctx, mustOrder(t, "s-"+id, Sell, price+10, 1))
		require.NoError(t, err)
		_, err = book.Process(ctx, mustOrder(t, "b-"+id, Buy, price-20, 1))
		require.NoError(t, err)
	}

	_, err := book.TopOfBook(-1)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	top, err := book.TopOfBook(0)
	require.NoError(t, err)
	assert.Len(t, top.BuyLevels, DefaultTopLevels)
	assert.Len(t, top.SellLevels, DefaultTopLevels)

	top, err = book.TopOfBook(3)
	require.NoError(t, err)
	require.Len(t, top.SellLevels, 3)

	// Most favorable first: lowest asks, highest bids
	assert.Equal(t, fpdecimal.FromFloat(100.0), top.SellLevels[0].Price)
	assert.Equal(t, fpdecimal.FromFloat(101.0), top.SellLevels[1].Price)
	assert.Equal(t, fpdecimal.FromFloat(81.0), top.BuyLevels[0].Price)
	assert.Equal(t, fpdecimal.FromFloat(80.0), top.BuyLevels[1].Price)
}

func TestTopOfBook_QueryDoesNotMutate(t *testing.T) {
	book, backend, _, _ := newTestBook()
	ctx := context.Background()

	_, err := book.Process(ctx, mustOrder(t, "sell-1", Sell, 100.0, 5))
	require.NoError(t, err)

	first, err := book.TopOfBook(5)
	require.NoError(t, err)
	second, err := book.TopOfBook(5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(5), backend.SideVolume(Sell))
}
