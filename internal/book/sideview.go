package book

import (
	"sort"

	"github.com/shopspring/decimal"
)

// sideView is an ephemeral flattened order book side: parallel best-first
// price and amount sequences. Amounts are mutable so own-order liquidity can
// be subtracted in place; prices keep the side's ordering so levels can be
// located by binary search.
type sideView struct {
	side    Side
	prices  []decimal.Decimal
	amounts []decimal.Decimal
}

func newSideView(side Side, levels []PriceLevel) sideView {
	view := sideView{
		side:    side,
		prices:  make([]decimal.Decimal, len(levels)),
		amounts: make([]decimal.Decimal, len(levels)),
	}
	for i, level := range levels {
		view.prices[i] = level.Price
		view.amounts[i] = level.Amount
	}
	return view
}

func flatten(snap Snapshot) (bids, asks sideView) {
	bidLevels, askLevels := Levels(snap)
	return newSideView(Buy, bidLevels), newSideView(Sell, askLevels)
}

func (v sideView) len() int { return len(v.prices) }

// findLevel locates price under the side's ordering: bids descend from the
// best level, asks ascend.
func (v sideView) findLevel(price decimal.Decimal) (int, bool) {
	idx := sort.Search(len(v.prices), func(i int) bool {
		if v.side == Buy {
			return v.prices[i].LessThanOrEqual(price)
		}
		return v.prices[i].GreaterThanOrEqual(price)
	})
	if idx < len(v.prices) && v.prices[idx].Equal(price) {
		return idx, true
	}
	return 0, false
}
