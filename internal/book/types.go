package book

import (
	"github.com/shopspring/decimal"
)

// TradePlace identifies one traded instrument on one exchange. It is a value
// type and is used as a map key everywhere dependency lookups happen.
type TradePlace struct {
	Exchange string
	Symbol   string
}

func (tp TradePlace) String() string { return tp.Exchange + ":" + tp.Symbol }

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// PriceLevel is one resting level of an order book side.
type PriceLevel struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// Snapshot is a pre-parsed local view of an order book. Exactly two shapes
// exist: TopOfBook and Depth. Feeding any other shape into the filter is an
// integration contract violation and panics.
type Snapshot interface {
	snapshotShape()
}

// TopOfBook carries only the single best level per side. A nil level means
// the side is empty.
type TopOfBook struct {
	Bid *PriceLevel
	Ask *PriceLevel
}

func (TopOfBook) snapshotShape() {}

// Depth carries the full visible depth. Levels are best first with unique
// prices per side: bids descending, asks ascending.
type Depth struct {
	Bids []PriceLevel
	Asks []PriceLevel
}

func (Depth) snapshotShape() {}

// Levels flattens a snapshot into best-first per-side level slices.
func Levels(snap Snapshot) (bids, asks []PriceLevel) {
	switch s := snap.(type) {
	case TopOfBook:
		if s.Bid != nil {
			bids = []PriceLevel{*s.Bid}
		}
		if s.Ask != nil {
			asks = []PriceLevel{*s.Ask}
		}
	case Depth:
		bids = s.Bids
		asks = s.Asks
	default:
		panic("book: unsupported snapshot shape")
	}
	return bids, asks
}

// OpenOrder is the read-only subset of an operator order the filter consumes.
// Orders without a limit price (market orders) carry HasPrice == false.
type OpenOrder struct {
	Price    decimal.Decimal
	HasPrice bool
	Side     Side
	Amount   decimal.Decimal
	Filled   decimal.Decimal
}

// SnapshotSource exposes the latest local snapshot per trade place.
// Implementations must be safe for concurrent readers.
type SnapshotSource interface {
	Snapshot(tp TradePlace) (Snapshot, bool)
}

// OrderSource exposes the operator's own not-yet-finished orders per exchange.
type OrderSource interface {
	OpenOrders(exchange string) []OpenOrder
}
