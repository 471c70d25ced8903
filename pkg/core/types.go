package core

import (
	"encoding/json"

	"github.com/nikolaydubina/fpdecimal"
)

// MatchRecord captures one executed pairing. Both counterparties' raw
// prices are recorded; no single execution price is derived.
type MatchRecord struct {
	BuyPrice  fpdecimal.Decimal
	SellPrice fpdecimal.Decimal
	Amount    int64
}

// MarshalJSON implements Marshaler interface
func (m MatchRecord) MarshalJSON() ([]byte, error) {
	customStruct := struct {
		BuyPrice  string `json:"buyPrice"`
		SellPrice string `json:"sellPrice"`
		Amount    int64  `json:"amount"`
	}{
		BuyPrice:  m.BuyPrice.String(),
		SellPrice: m.SellPrice.String(),
		Amount:    m.Amount,
	}
	return json.Marshal(customStruct)
}

// UnmarshalJSON implements Unmarshaler interface
func (m *MatchRecord) UnmarshalJSON(data []byte) error {
	var customStruct struct {
		BuyPrice  string `json:"buyPrice"`
		SellPrice string `json:"sellPrice"`
		Amount    int64  `json:"amount"`
	}

	if err := json.Unmarshal(data, &customStruct); err != nil {
		return err
	}

	var err error

	m.BuyPrice, err = fpdecimal.FromString(customStruct.BuyPrice)
	if err != nil {
		return err
	}

	m.SellPrice, err = fpdecimal.FromString(customStruct.SellPrice)
	if err != nil {
		return err
	}

	m.Amount = customStruct.Amount
	return nil
}

// PriceLevel aggregates the total resting amount at one price on one side.
// Levels are derived on query and never stored.
type PriceLevel struct {
	Price  fpdecimal.Decimal
	Amount int64
	Side   Side
}

// MarshalJSON implements Marshaler interface
func (l PriceLevel) MarshalJSON() ([]byte, error) {
	customStruct := struct {
		Price  string `json:"price"`
		Amount int64  `json:"amount"`
		Side   string `json:"side"`
	}{
		Price:  l.Price.String(),
		Amount: l.Amount,
		Side:   l.Side.String(),
	}
	return json.Marshal(customStruct)
}

// TopOfBook holds up to N aggregated price levels per side, most
// favorable first.
type TopOfBook struct {
	BuyLevels  []PriceLevel `json:"buyLevels"`
	SellLevels []PriceLevel `json:"sellLevels"`
}

// Done contains the result of one matching step
type Done struct {
	// Order processed
	Order Order
	// Matches executed for this order, in execution order
	Matches []MatchRecord
	// Remaining amount rested on the book, zero when fully matched
	Left int64
	// Total amount matched for this order
	Processed int64
	// Whether a remainder was stored as a resting order
	Stored bool
}

func newDone(order Order) *Done {
	return &Done{
		Order:   order,
		Matches: make([]MatchRecord, 0),
	}
}

func (d *Done) appendMatch(record MatchRecord) {
	d.Matches = append(d.Matches, record)
	d.Processed += record.Amount
}
