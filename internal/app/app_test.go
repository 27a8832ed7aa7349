package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mx-trend-bot/internal/book"
	"mx-trend-bot/internal/clock"
	"mx-trend-bot/internal/config"
	"mx-trend-bot/internal/history"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var (
	targetPlace    = book.TradePlace{Exchange: "alpha", Symbol: "BTCUSD"}
	referencePlace = book.TradePlace{Exchange: "beta", Symbol: "BTCUSD"}
)

func testConfig() *config.Config {
	return &config.Config{
		Trend: config.TrendConfig{WindowPeriod: 60 * time.Second},
		Strategies: []config.StrategyConfig{{
			Target:    config.TradePlaceConfig{Exchange: targetPlace.Exchange, Symbol: targetPlace.Symbol},
			Reference: config.TradePlaceConfig{Exchange: referencePlace.Exchange, Symbol: referencePlace.Symbol},
		}},
	}
}

func testDepth(bid, ask float64) book.Depth {
	return book.Depth{
		Bids: []book.PriceLevel{{Price: decimal.NewFromFloat(bid), Amount: decimal.NewFromInt(10)}},
		Asks: []book.PriceLevel{{Price: decimal.NewFromFloat(ask), Amount: decimal.NewFromInt(10)}},
	}
}

func TestTrendParamsFromConfig(t *testing.T) {
	params := trendParams(config.TrendConfig{
		WindowPeriod:                 30 * time.Second,
		ReferenceDeltaPriceThreshold: 25,
	})
	if params.WindowPeriod != 30*time.Second {
		t.Fatalf("expected 30s window, got %v", params.WindowPeriod)
	}
	if !params.DeltaPriceThreshold.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected delta threshold 25, got %s", params.DeltaPriceThreshold)
	}
	// Unset fields keep their defaults.
	if !params.TargetSpreadThreshold.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected default spread threshold, got %s", params.TargetSpreadThreshold)
	}
	if !params.PercentileRate.Equal(book.DefaultPercentileRate) {
		t.Fatalf("expected default percentile rate, got %s", params.PercentileRate)
	}
}

func TestApplyBookEventDrivesEquilibrium(t *testing.T) {
	clk := clock.NewManual(t0)
	a, err := New(testConfig(), zap.NewNop(), clk)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()
	a.coordinator.Start()

	a.ApplyBookEvent(targetPlace, testDepth(100, 101), time.Time{}, false)
	a.ApplyBookEvent(referencePlace, testDepth(100, 101), time.Time{}, false)
	if _, ok := a.Equilibrium(targetPlace, book.Buy); ok {
		t.Fatalf("expected equilibrium withheld during initial prohibition")
	}

	clk.Advance(61 * time.Second)
	a.ApplyBookEvent(referencePlace, testDepth(100, 101), time.Time{}, false)
	if _, ok := a.Equilibrium(targetPlace, book.Buy); !ok {
		t.Fatalf("expected equilibrium after the quiet window elapsed")
	}
}

func TestRunReplaysRecordedBookEvents(t *testing.T) {
	cfg := testConfig()
	cfg.History = config.HistoryConfig{
		Enabled: true,
		Driver:  "sqlite",
		DSN:     filepath.Join(t.TempDir(), "history.db"),
	}
	cfg.Replay = config.ReplayConfig{Enabled: true}

	clk := clock.NewManual(t0)
	a, err := New(cfg, zap.NewNop(), clk)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	records := []history.BookRecord{
		history.BookRecordFromDepth(targetPlace, testDepth(100, 101), t0.Add(time.Second), time.Time{}, false),
		history.BookRecordFromDepth(referencePlace, testDepth(100, 101), t0.Add(time.Second), time.Time{}, false),
		history.BookRecordFromDepth(referencePlace, testDepth(100, 101), t0.Add(61*time.Second), time.Time{}, false),
	}
	for _, rec := range records {
		if err := a.store.InsertBookEvent(ctx, rec); err != nil {
			t.Fatalf("insert record: %v", err)
		}
	}

	if err := a.Run(ctx); err != nil {
		t.Fatalf("run replay: %v", err)
	}
	if !clk.Now().Equal(t0.Add(61 * time.Second)) {
		t.Fatalf("expected clock to follow the recording, got %v", clk.Now())
	}
	eq, ok := a.Equilibrium(targetPlace, book.Buy)
	if !ok {
		t.Fatalf("expected equilibrium after replay")
	}
	if !eq.Equal(decimal.Decimal{}) {
		t.Fatalf("expected zero equilibrium for matched books, got %s", eq)
	}
}

func TestReplayRequiresHistory(t *testing.T) {
	cfg := testConfig()
	cfg.Replay = config.ReplayConfig{Enabled: true}
	a, err := New(cfg, zap.NewNop(), clock.NewManual(t0))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if err := a.Run(context.Background()); err == nil {
		t.Fatalf("expected error when replaying without a history store")
	}
}
