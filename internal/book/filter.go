package book

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultPercentileRate is the quantile used to discard thin top-of-book
// levels when a side has enough depth to judge.
var DefaultPercentileRate = decimal.NewFromFloat(0.1)

// Sides with fewer levels are passed through unfiltered.
const minLevelsForFilter = 5

var two = decimal.NewFromInt(2)

// TopPrices carries the best trustworthy price per side after filtering.
type TopPrices struct {
	Bid    decimal.Decimal
	Ask    decimal.Decimal
	HasBid bool
	HasAsk bool
}

// Price maps Buy to the top bid and Sell to the top ask.
func (p TopPrices) Price(side Side) (decimal.Decimal, bool) {
	if side == Buy {
		return p.Bid, p.HasBid
	}
	return p.Ask, p.HasAsk
}

// FilteredTopPrices flattens the snapshot, strips the operator's own resting
// amounts, and returns the best level per side whose visible amount strictly
// exceeds the rate-th quantile of that side's positive amounts. Thin or
// likely-spoofed levels at the very top of book are skipped that way.
func FilteredTopPrices(ownOrders []OpenOrder, snap Snapshot, rate decimal.Decimal) TopPrices {
	bids, asks := flatten(snap)
	removeOwnLiquidity(ownOrders, bids, asks)
	topBid, hasBid := filterSideTop(bids, rate)
	topAsk, hasAsk := filterSideTop(asks, rate)
	return TopPrices{Bid: topBid, Ask: topAsk, HasBid: hasBid, HasAsk: hasAsk}
}

// FilteredTopMid is the midpoint of the filtered top bid and ask, absent
// whenever either side has no trustworthy level.
func FilteredTopMid(ownOrders []OpenOrder, snap Snapshot, rate decimal.Decimal) (decimal.Decimal, bool) {
	prices := FilteredTopPrices(ownOrders, snap, rate)
	if !prices.HasBid || !prices.HasAsk {
		return decimal.Decimal{}, false
	}
	return prices.Bid.Add(prices.Ask).Div(two), true
}

// removeOwnLiquidity subtracts the unfilled remainder of each own limit order
// from the matching price level. A missing level means the order is already
// filled or the level delisted, which is a no-op. The remainder may drive a
// level negative; such levels are excluded from the percentile sample and can
// never be selected as a top price.
func removeOwnLiquidity(ownOrders []OpenOrder, bids, asks sideView) {
	for _, order := range ownOrders {
		if !order.HasPrice {
			continue
		}
		side := asks
		if order.Side == Buy {
			side = bids
		}
		if i, ok := side.findLevel(order.Price); ok {
			side.amounts[i] = side.amounts[i].Sub(order.Amount.Sub(order.Filled))
		}
	}
}

func filterSideTop(view sideView, rate decimal.Decimal) (decimal.Decimal, bool) {
	if view.len() == 0 {
		return decimal.Decimal{}, false
	}
	threshold := decimal.Decimal{}
	if view.len() >= minLevelsForFilter {
		amount, ok := percentileAmount(view.amounts, rate)
		if !ok {
			// Nothing rests on this side once empty and negative levels are
			// discounted, so no level can be trusted either.
			return decimal.Decimal{}, false
		}
		threshold = amount
	}
	// Prices are sorted best first, so scanning forward removes only top
	// positions.
	for i := 0; i < view.len(); i++ {
		if view.amounts[i].GreaterThan(threshold) {
			return view.prices[i], true
		}
	}
	return decimal.Decimal{}, false
}

// percentileAmount computes the rate-th quantile of the strictly positive
// amounts using linear interpolation between closest ranks (the "inclusive"
// method). ok is false when no amount is positive.
func percentileAmount(amounts []decimal.Decimal, rate decimal.Decimal) (decimal.Decimal, bool) {
	positive := make([]decimal.Decimal, 0, len(amounts))
	for _, amount := range amounts {
		if amount.IsPositive() {
			positive = append(positive, amount)
		}
	}
	count := len(positive)
	if count == 0 {
		return decimal.Decimal{}, false
	}
	if count == 1 {
		return positive[0], true
	}
	sort.Slice(positive, func(i, j int) bool { return positive[i].LessThan(positive[j]) })
	n := decimal.NewFromInt(int64(count - 1)).Mul(rate).Add(decimal.NewFromInt(1))
	k := n.IntPart()
	if int(k) == count {
		return positive[count-1], true
	}
	d := n.Sub(decimal.NewFromInt(k))
	lower := positive[k-1]
	upper := positive[k]
	return lower.Add(d.Mul(upper.Sub(lower))), true
}
