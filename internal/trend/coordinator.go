package trend

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mx-trend-bot/internal/book"
	"mx-trend-bot/internal/clock"
	"mx-trend-bot/internal/metrics"
)

// Strategy pairs a target trade place with the reference instrument that
// anchors its fair value.
type Strategy struct {
	Target                           book.TradePlace
	Reference                        book.TradePlace
	ReferenceDeltaPriceThresholdRate decimal.Decimal
}

// TransitionEvent notifies observers that a target entered or left a
// prohibition interval.
type TransitionEvent struct {
	Target book.TradePlace
	Kind   Transition
	At     time.Time
}

// Coordinator routes book events to the equilibrium states that depend on
// them and answers equilibrium queries for downstream pricing logic. The
// dependency index is built once at construction and never mutated, so
// lookups need no synchronization; all mutable state lives behind the
// per-State locks.
type Coordinator struct {
	params    Params
	clock     clock.Clock
	log       *zap.Logger
	snapshots book.SnapshotSource
	orders    book.OrderSource
	metrics   *metrics.Metrics

	states  map[book.TradePlace]*State
	related map[book.TradePlace][]*State

	onTransition func(TransitionEvent)
}

// NewCoordinator builds the target index and the relation index from the
// strategy list. A duplicate target trade place is a configuration error and
// aborts startup.
func NewCoordinator(
	strategies []Strategy,
	params Params,
	snapshots book.SnapshotSource,
	orders book.OrderSource,
	clk clock.Clock,
	log *zap.Logger,
	m *metrics.Metrics,
) (*Coordinator, error) {
	if clk == nil {
		clk = clock.Real
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	states := make(map[book.TradePlace]*State, len(strategies))
	related := make(map[book.TradePlace][]*State)
	for _, strat := range strategies {
		if _, exists := states[strat.Target]; exists {
			return nil, fmt.Errorf("duplicate target trade place %s", strat.Target)
		}
		st := newState(strat.Target, strat.Reference, strat.ReferenceDeltaPriceThresholdRate)
		states[strat.Target] = st
		// Events from the target and from its reference both drive the same
		// state.
		related[strat.Target] = append(related[strat.Target], st)
		related[strat.Reference] = append(related[strat.Reference], st)
	}
	return &Coordinator{
		params:    params,
		clock:     clk,
		log:       log,
		snapshots: snapshots,
		orders:    orders,
		metrics:   m,
		states:    states,
		related:   related,
	}, nil
}

// OnTransition registers a callback fired after a prohibition starts or ends.
// The callback runs outside the state lock and must not block; set it before
// Start.
func (c *Coordinator) OnTransition(fn func(TransitionEvent)) {
	c.onTransition = fn
}

// Start forces every state into an initial prohibition interval so no
// equilibrium is served before a full quiet window has been observed.
func (c *Coordinator) Start() {
	now := c.clock.Now()
	for _, st := range c.states {
		st.ForceProhibition(now)
	}
	c.log.Info("trend coordinator started",
		zap.Int("targets", len(c.states)),
		zap.Duration("window_period", c.params.WindowPeriod))
}

// OnBookEvent updates every equilibrium state that depends on the given trade
// place, once per trade side. Unknown trade places are a no-op.
func (c *Coordinator) OnBookEvent(tp book.TradePlace) {
	c.metrics.BookEvents.Inc()
	dependents, ok := c.related[tp]
	if !ok {
		return
	}
	for _, st := range dependents {
		c.updateState(st, book.Buy)
		c.updateState(st, book.Sell)
	}
}

type sidePrices struct {
	target       decimal.Decimal
	targetSpread decimal.Decimal
	reference    decimal.Decimal
}

func (c *Coordinator) updateState(st *State, side book.Side) {
	prices, ok := c.collectPrices(st, side)
	if !ok {
		c.metrics.UpdatesSkipped.Inc()
		return
	}
	deltaPrice := PriceOffset(prices.reference, prices.target, decimal.Decimal{})
	now := c.clock.Now()
	transition := st.Observe(Observation{
		Side:         side,
		DeltaPrice:   deltaPrice,
		TargetSpread: prices.targetSpread,
	}, now, c.params)
	c.metrics.SamplesRecorded.Inc()
	switch transition {
	case TransitionProhibitionStarted:
		c.metrics.ProhibitionsStarted.Inc()
		c.log.Warn("prohibition started",
			zap.Stringer("target", st.target),
			zap.String("side", string(side)),
			zap.String("delta_price", deltaPrice.String()),
			zap.String("target_spread", prices.targetSpread.String()))
		c.emit(TransitionEvent{Target: st.target, Kind: transition, At: now})
	case TransitionProhibitionEnded:
		c.metrics.ProhibitionsEnded.Inc()
		c.log.Info("prohibition ended", zap.Stringer("target", st.target))
		c.emit(TransitionEvent{Target: st.target, Kind: transition, At: now})
	}
}

func (c *Coordinator) emit(ev TransitionEvent) {
	if c.onTransition != nil {
		c.onTransition(ev)
	}
}

// collectPrices computes the filtered top prices both legs need for one side.
// Any missing snapshot or unavailable level makes the whole update skippable:
// no state changes, no error surfaces.
func (c *Coordinator) collectPrices(st *State, side book.Side) (sidePrices, bool) {
	targetSnap, ok := c.snapshots.Snapshot(st.target)
	if !ok {
		c.log.Debug("no target snapshot", zap.Stringer("trade_place", st.target))
		return sidePrices{}, false
	}
	targetTops := book.FilteredTopPrices(c.orders.OpenOrders(st.target.Exchange), targetSnap, c.params.PercentileRate)
	targetPrice, ok := targetTops.Price(side)
	if !ok {
		return sidePrices{}, false
	}
	oppositePrice, ok := targetTops.Price(side.Opposite())
	if !ok {
		return sidePrices{}, false
	}

	refSnap, ok := c.snapshots.Snapshot(st.reference)
	if !ok {
		c.log.Debug("no reference snapshot", zap.Stringer("trade_place", st.reference))
		return sidePrices{}, false
	}
	refTops := book.FilteredTopPrices(c.orders.OpenOrders(st.reference.Exchange), refSnap, c.params.PercentileRate)
	refPrice, ok := refTops.Price(side)
	if !ok {
		c.log.Debug("no reference price level",
			zap.Stringer("trade_place", st.reference),
			zap.String("side", string(side)))
		return sidePrices{}, false
	}

	return sidePrices{
		target:       targetPrice,
		targetSpread: oppositePrice.Sub(targetPrice).Abs(),
		reference:    refPrice,
	}, true
}

// Equilibrium answers the downstream pricing query. ok is false for unknown
// targets and while the target sits inside a prohibition interval; callers
// must not trade on the signal in that case.
func (c *Coordinator) Equilibrium(tp book.TradePlace, side book.Side) (decimal.Decimal, bool) {
	st, ok := c.states[tp]
	if !ok {
		return decimal.Decimal{}, false
	}
	return st.Equilibrium(side)
}

// State exposes the per-target state, mainly for wiring and diagnostics.
func (c *Coordinator) State(tp book.TradePlace) (*State, bool) {
	st, ok := c.states[tp]
	return st, ok
}
