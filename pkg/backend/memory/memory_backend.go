package memory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/erain9/crossbook/pkg/core"
	"github.com/nikolaydubina/fpdecimal"
)

// orderQueue represents a price level in the order book. Orders are held
// in arrival order; the head is the oldest resting order.
type orderQueue struct {
	orders    []core.Order
	priceStr  string
	priceDecm fpdecimal.Decimal
	next      *orderQueue
	prev      *orderQueue
}

func newOrderQueue(price fpdecimal.Decimal) *orderQueue {
	return &orderQueue{
		orders:    make([]core.Order, 0, 4),
		priceStr:  price.String(),
		priceDecm: price,
	}
}

func (q *orderQueue) amount() int64 {
	var total int64
	for _, order := range q.orders {
		total += order.Amount()
	}
	return total
}

// orderSide represents one side (bid/ask) of the order book. The level
// list is kept sorted best-first: highest price for bids, lowest for asks.
type orderSide struct {
	side   core.Side
	head   *orderQueue
	tail   *orderQueue
	levels map[string]*orderQueue
}

func newOrderSide(side core.Side) *orderSide {
	return &orderSide{
		side:   side,
		levels: make(map[string]*orderQueue),
	}
}

// betterThan reports whether price a sorts before price b on this side
func (os *orderSide) betterThan(a, b fpdecimal.Decimal) bool {
	if os.side == core.Buy {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

func (os *orderSide) insertLevel(queue *orderQueue) {
	os.levels[queue.priceStr] = queue

	if os.head == nil {
		os.head = queue
		os.tail = queue
		return
	}

	if os.betterThan(queue.priceDecm, os.head.priceDecm) {
		queue.next = os.head
		os.head.prev = queue
		os.head = queue
		return
	}

	if !os.betterThan(queue.priceDecm, os.tail.priceDecm) {
		queue.prev = os.tail
		os.tail.next = queue
		os.tail = queue
		return
	}

	current := os.head
	for current != nil && !os.betterThan(queue.priceDecm, current.priceDecm) {
		current = current.next
	}
	queue.next = current
	queue.prev = current.prev
	current.prev.next = queue
	current.prev = queue
}

func (os *orderSide) removeLevel(queue *orderQueue) {
	delete(os.levels, queue.priceStr)

	if queue.prev != nil {
		queue.prev.next = queue.next
	} else {
		os.head = queue.next
	}

	if queue.next != nil {
		queue.next.prev = queue.prev
	} else {
		os.tail = queue.prev
	}
}

// String implements fmt.Stringer interface
func (os *orderSide) String() string {
	sb := strings.Builder{}
	current := os.head

	for current != nil {
		sb.WriteString(fmt.Sprintf("\n%s -> orders: %d", current.priceStr, len(current.orders)))
		current = current.next
	}

	return sb.String()
}

// MemoryBackend implements core.BookBackend with in-memory storage.
// Mutations come only from the serialized matching step; the RWMutex
// exists so top-of-book readers can snapshot concurrently.
type MemoryBackend struct {
	sync.RWMutex
	bids *orderSide
	asks *orderSide
}

// NewMemoryBackend creates new instance of MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		bids: newOrderSide(core.Buy),
		asks: newOrderSide(core.Sell),
	}
}

func (b *MemoryBackend) sideOf(side core.Side) *orderSide {
	if side == core.Buy {
		return b.bids
	}
	return b.asks
}

// BestPrice returns the most favorable resting price on the given side
func (b *MemoryBackend) BestPrice(side core.Side) (fpdecimal.Decimal, bool) {
	b.RLock()
	defer b.RUnlock()

	orderSide := b.sideOf(side)
	if orderSide.head == nil {
		return fpdecimal.Zero, false
	}
	return orderSide.head.priceDecm, true
}

// HeadOrder returns the oldest resting order at the given price level
func (b *MemoryBackend) HeadOrder(side core.Side, price fpdecimal.Decimal) (core.Order, bool) {
	b.RLock()
	defer b.RUnlock()

	queue, ok := b.sideOf(side).levels[price.String()]
	if !ok || len(queue.orders) == 0 {
		return core.Order{}, false
	}
	return queue.orders[0], true
}

// ReplaceHead swaps the head order of a level for its reduced replacement,
// keeping its position at the front of the queue.
func (b *MemoryBackend) ReplaceHead(side core.Side, price fpdecimal.Decimal, order core.Order) {
	b.Lock()
	defer b.Unlock()

	queue, ok := b.sideOf(side).levels[price.String()]
	if !ok || len(queue.orders) == 0 {
		return
	}
	queue.orders[0] = order
}

// PopHead removes the head order of a level and drops the level once its
// queue is empty.
func (b *MemoryBackend) PopHead(side core.Side, price fpdecimal.Decimal) {
	b.Lock()
	defer b.Unlock()

	orderSide := b.sideOf(side)
	queue, ok := orderSide.levels[price.String()]
	if !ok || len(queue.orders) == 0 {
		return
	}

	queue.orders = queue.orders[1:]
	if len(queue.orders) == 0 {
		orderSide.removeLevel(queue)
	}
}

// AppendToSide rests an order at the back of its price level's queue,
// creating the level if absent.
func (b *MemoryBackend) AppendToSide(side core.Side, order core.Order) {
	b.Lock()
	defer b.Unlock()

	orderSide := b.sideOf(side)
	price := order.Price()

	if queue, ok := orderSide.levels[price.String()]; ok {
		queue.orders = append(queue.orders, order)
		return
	}

	queue := newOrderQueue(price)
	queue.orders = append(queue.orders, order)
	orderSide.insertLevel(queue)
}

// TopLevels returns up to n aggregated price levels, most favorable first
func (b *MemoryBackend) TopLevels(side core.Side, n int) []core.PriceLevel {
	b.RLock()
	defer b.RUnlock()

	levels := make([]core.PriceLevel, 0, n)
	current := b.sideOf(side).head

	for current != nil && len(levels) < n {
		if len(current.orders) > 0 {
			levels = append(levels, core.PriceLevel{
				Price:  current.priceDecm,
				Amount: current.amount(),
				Side:   side,
			})
		}
		current = current.next
	}

	return levels
}

// SideVolume returns the total resting amount on a side
func (b *MemoryBackend) SideVolume(side core.Side) int64 {
	b.RLock()
	defer b.RUnlock()

	var total int64
	for current := b.sideOf(side).head; current != nil; current = current.next {
		total += current.amount()
	}
	return total
}

// String implements fmt.Stringer interface
func (b *MemoryBackend) String() string {
	b.RLock()
	defer b.RUnlock()

	builder := strings.Builder{}
	builder.WriteString("Ask:")
	builder.WriteString(b.asks.String())
	builder.WriteString("\nBid:")
	builder.WriteString(b.bids.String())
	return builder.String()
}
