package ledger

import (
	"sync"

	"github.com/erain9/crossbook/pkg/core"
)

// MemoryLedger implements core.MatchLedger with an in-memory slice.
// Records are immutable once appended and never removed.
type MemoryLedger struct {
	mu      sync.RWMutex
	records []core.MatchRecord
}

// NewMemoryLedger creates new instance of MemoryLedger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: make([]core.MatchRecord, 0),
	}
}

// Append adds a record to the end of the ledger
func (l *MemoryLedger) Append(record core.MatchRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
}

// History returns a copy of the full ledger in execution order
func (l *MemoryLedger) History() []core.MatchRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	history := make([]core.MatchRecord, len(l.records))
	copy(history, l.records)
	return history
}

// Latest returns the suffix of length min(n, size). A negative n is
// programmer misuse and returns an error; an empty ledger is not.
func (l *MemoryLedger) Latest(n int) ([]core.MatchRecord, error) {
	if n < 0 {
		return nil, core.ErrInvalidLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.records) {
		n = len(l.records)
	}

	latest := make([]core.MatchRecord, n)
	copy(latest, l.records[len(l.records)-n:])
	return latest, nil
}

// Size returns the number of records appended so far
func (l *MemoryLedger) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

var _ core.MatchLedger = (*MemoryLedger)(nil)
