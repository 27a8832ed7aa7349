package trend

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"mx-trend-bot/internal/book"
)

// Params are the process-wide tuning constants, threaded through construction
// so they stay explicit and overridable per process.
type Params struct {
	// WindowPeriod bounds the trailing sample window and also sets how long a
	// prohibition interval lasts once the breach condition goes quiet.
	WindowPeriod time.Duration
	// ResetDelay is the hysteresis applied before a breach commits a new
	// prohibition interval. Zero commits on the next qualifying observation.
	ResetDelay time.Duration
	// TargetSpreadThreshold and DeltaPriceThreshold are in quote-currency
	// units; exceeding either marks the observation as a breach.
	TargetSpreadThreshold decimal.Decimal
	DeltaPriceThreshold   decimal.Decimal
	// PercentileRate drives the thin-liquidity book filter.
	PercentileRate decimal.Decimal
}

func DefaultParams() Params {
	return Params{
		WindowPeriod:          180 * time.Second,
		ResetDelay:            0,
		TargetSpreadThreshold: decimal.NewFromInt(70),
		DeltaPriceThreshold:   decimal.NewFromInt(70),
		PercentileRate:        book.DefaultPercentileRate,
	}
}

type sample struct {
	time       time.Time
	deltaPrice decimal.Decimal
}

// sideWindow is the trailing window of delta-price samples for one trade
// side. The running sum always equals the sum of the queued samples.
type sideWindow struct {
	samples     []sample
	sum         decimal.Decimal
	equilibrium decimal.Decimal
}

// push evicts samples older than the window bound, then appends the new one.
// Eviction is lazy: it happens here, right before the window is used.
func (w *sideWindow) push(deltaPrice decimal.Decimal, now time.Time, windowPeriod time.Duration) {
	bound := now.Add(-windowPeriod)
	for len(w.samples) > 0 && w.samples[0].time.Before(bound) {
		w.sum = w.sum.Sub(w.samples[0].deltaPrice)
		w.samples = w.samples[1:]
	}
	w.samples = append(w.samples, sample{time: now, deltaPrice: deltaPrice})
	w.sum = w.sum.Add(deltaPrice)
}

// mean requires a non-empty window; callers invoke it only right after a push
// or after checking the length.
func (w *sideWindow) mean() decimal.Decimal {
	return w.sum.Div(decimal.NewFromInt(int64(len(w.samples))))
}

func (w *sideWindow) clear() {
	w.samples = nil
	w.sum = decimal.Decimal{}
}

type gateState int

const (
	gateIdle gateState = iota
	gateArmed
)

// resetGate is the pending-reset hysteresis sub-state: armed records when the
// breach condition was first seen, idle means no reset attempt is pending.
type resetGate struct {
	state   gateState
	armedAt time.Time
}

// Transition reports a state-machine edge observed while applying a sample.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionProhibitionStarted
	TransitionProhibitionEnded
)

// Observation is one filtered book reading for a single side.
type Observation struct {
	Side         book.Side
	DeltaPrice   decimal.Decimal
	TargetSpread decimal.Decimal
}

// State tracks the smoothed equilibrium between one target trade place and
// its reference. One mutex guards both side windows, the prohibition marker
// and the reset gate; independent instruments never contend.
type State struct {
	target        book.TradePlace
	reference     book.TradePlace
	thresholdRate decimal.Decimal

	mu              sync.Mutex
	buy             sideWindow
	sell            sideWindow
	prohibited      bool
	prohibitedSince time.Time
	gate            resetGate
}

func newState(target, reference book.TradePlace, thresholdRate decimal.Decimal) *State {
	return &State{target: target, reference: reference, thresholdRate: thresholdRate}
}

func (s *State) Target() book.TradePlace    { return s.target }
func (s *State) Reference() book.TradePlace { return s.reference }

// ThresholdRate is the per-strategy rate for ReferenceThreshold consumers.
func (s *State) ThresholdRate() decimal.Decimal { return s.thresholdRate }

func (s *State) side(side book.Side) *sideWindow {
	if side == book.Buy {
		return &s.buy
	}
	return &s.sell
}

// tryResetProhibitionPeriod runs the hysteresis gate. The first call after a
// breach arms the gate; a call resetDelay or more after arming commits: the
// prohibition interval restarts at now and both side windows are dropped.
// Callers hold s.mu.
func (s *State) tryResetProhibitionPeriod(now time.Time, resetDelay time.Duration) {
	if s.gate.state == gateIdle {
		s.gate = resetGate{state: gateArmed, armedAt: now}
		return
	}
	if now.Sub(s.gate.armedAt) < resetDelay {
		return
	}
	s.beginProhibition(now)
}

// abortReset clears a pending reset attempt. Callers hold s.mu.
func (s *State) abortReset() {
	s.gate = resetGate{}
}

func (s *State) beginProhibition(now time.Time) {
	s.prohibited = true
	s.prohibitedSince = now
	s.buy.clear()
	s.sell.clear()
	s.gate = resetGate{}
}

// ForceProhibition starts a prohibition interval immediately, bypassing the
// gate. Used at startup so no equilibrium is trusted before a full window of
// quiet samples has accumulated.
func (s *State) ForceProhibition(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginProhibition(now)
}

// Observe pushes one sample and runs the prohibition state machine.
func (s *State) Observe(obs Observation, now time.Time, p Params) Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := s.side(obs.Side)
	window.push(obs.DeltaPrice, now, p.WindowPeriod)

	exceeded := obs.TargetSpread.GreaterThan(p.TargetSpreadThreshold) ||
		obs.DeltaPrice.Abs().GreaterThan(p.DeltaPriceThreshold)

	if s.prohibited {
		if exceeded {
			// The breach recurs: keep the prohibition alive, possibly
			// restarting its interval through the gate.
			s.tryResetProhibitionPeriod(now, p.ResetDelay)
			return TransitionNone
		}
		s.abortReset()
		if !s.prohibitedSince.Add(p.WindowPeriod).After(now) {
			s.prohibited = false
			// Resumption is side-synchronized: both equilibria come from the
			// window accumulated during the prohibition interval, even if
			// only one side triggered the breach.
			if len(s.buy.samples) > 0 {
				s.buy.equilibrium = s.buy.mean()
			}
			if len(s.sell.samples) > 0 {
				s.sell.equilibrium = s.sell.mean()
			}
			return TransitionProhibitionEnded
		}
		return TransitionNone
	}

	if exceeded {
		s.tryResetProhibitionPeriod(now, p.ResetDelay)
		if s.prohibited {
			return TransitionProhibitionStarted
		}
		return TransitionNone
	}
	s.abortReset()
	window.equilibrium = window.mean()
	return TransitionNone
}

// Equilibrium returns the stored equilibrium for the side, withheld while a
// prohibition interval is active.
func (s *State) Equilibrium(side book.Side) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prohibited {
		return decimal.Decimal{}, false
	}
	return s.side(side).equilibrium, true
}
