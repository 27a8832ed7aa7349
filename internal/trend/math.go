package trend

import (
	"fmt"

	"github.com/shopspring/decimal"

	"mx-trend-bot/internal/book"
)

type Trend string

const (
	TrendNone     Trend = "NONE"
	TrendPositive Trend = "POSITIVE"
	TrendNegative Trend = "NEGATIVE"
)

// Explanation collects human-readable reasons for audit logs. A nil receiver
// is a no-op so callers can pass nil when no audit trail is wanted.
type Explanation struct {
	reasons []string
}

func (e *Explanation) AddReason(reason string) {
	if e == nil {
		return
	}
	e.reasons = append(e.reasons, reason)
}

func (e *Explanation) Reasons() []string {
	if e == nil {
		return nil
	}
	return e.reasons
}

// PriceOffset is the live signal: how far the reference price sits above the
// target price once the equilibrium baseline is removed.
func PriceOffset(referencePrice, targetPrice, equilibrium decimal.Decimal) decimal.Decimal {
	return referencePrice.Sub(targetPrice).Sub(equilibrium)
}

// ReferenceThreshold scales the classification threshold with the reference
// price. The live path currently pins the threshold to zero and classifies on
// the offset sign alone; this stays available as a toggle for consumers that
// want a dead band proportional to price.
func ReferenceThreshold(referencePrice, rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(referencePrice)
}

// Classify labels the current market condition relative to the equilibrium
// baseline. For Sell an offset below -threshold is a negative trend and above
// +threshold a positive one; Buy mirrors the signs. Anything inside the band
// is noise.
func Classify(referencePrice, targetPrice, equilibrium decimal.Decimal, side book.Side, threshold decimal.Decimal, expl *Explanation) Trend {
	offset := PriceOffset(referencePrice, targetPrice, equilibrium)
	var result Trend
	switch {
	case side == book.Sell && offset.LessThan(threshold.Neg()):
		result = TrendNegative
	case side == book.Buy && offset.GreaterThan(threshold):
		result = TrendNegative
	case side == book.Sell && offset.GreaterThan(threshold):
		result = TrendPositive
	case side == book.Buy && offset.LessThan(threshold.Neg()):
		result = TrendPositive
	default:
		result = TrendNone
	}
	if expl != nil {
		expl.AddReason(fmt.Sprintf(
			"%s trend: priceOffset %s vs threshold %s with equilibrium %s (referencePrice %s targetPrice %s side %s)",
			result, offset, threshold, equilibrium, referencePrice, targetPrice, side))
	}
	return result
}
