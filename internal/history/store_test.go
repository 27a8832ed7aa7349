package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"mx-trend-bot/internal/book"
	"mx-trend-bot/internal/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.HistoryConfig{
		Enabled: true,
		Driver:  "sqlite",
		DSN:     filepath.Join(t.TempDir(), "history.db"),
	}
	store, err := Open(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenDisabledReturnsNil(t *testing.T) {
	store, err := Open(config.HistoryConfig{Enabled: false}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store != nil {
		t.Fatalf("expected nil store when disabled")
	}
}

func TestBookEventRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := BookRecord{
			Exchange:        "alpha",
			Symbol:          "BTCUSD",
			Time:            base.Add(time.Duration(i) * time.Second),
			ExchangeTime:    base.Add(time.Duration(i)*time.Second - 50*time.Millisecond),
			HasExchangeTime: true,
			Bids:            []BookLevel{{Price: "100.5", Amount: "2"}},
			Asks:            []BookLevel{{Price: "101", Amount: "3"}},
		}
		if err := store.InsertBookEvent(ctx, rec); err != nil {
			t.Fatalf("insert book event %d: %v", i, err)
		}
	}

	records, err := store.RecentBookEvents(ctx, 2)
	if err != nil {
		t.Fatalf("read book events: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if !records[0].Time.Before(records[1].Time) {
		t.Fatalf("expected ascending order, got %v then %v", records[0].Time, records[1].Time)
	}
	if !records[1].Time.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("expected newest record last, got %v", records[1].Time)
	}
	if records[0].Bids[0].Price != "100.5" {
		t.Fatalf("expected bid price 100.5, got %q", records[0].Bids[0].Price)
	}
	if !records[0].HasExchangeTime {
		t.Fatalf("expected exchange time to survive the round trip")
	}
}

func TestOrderRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rec := OrderRecord{
		ClientOrderID: "ord-1",
		Exchange:      "alpha",
		Time:          base,
		StatusChanges: []StatusChange{
			{Status: OrderCreating, Time: base},
			{Status: OrderCreated, Time: base.Add(40 * time.Millisecond)},
		},
		FinishedTime:    base.Add(time.Second),
		HasFinishedTime: true,
	}
	if err := store.InsertOrder(ctx, rec); err != nil {
		t.Fatalf("insert order: %v", err)
	}

	records, err := store.RecentOrders(ctx, 0)
	if err != nil {
		t.Fatalf("read orders: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.ClientOrderID != "ord-1" {
		t.Fatalf("expected ord-1, got %q", got.ClientOrderID)
	}
	if len(got.StatusChanges) != 2 || got.StatusChanges[1].Status != OrderCreated {
		t.Fatalf("unexpected status changes %+v", got.StatusChanges)
	}
	if !got.HasFinishedTime || !got.FinishedTime.Equal(base.Add(time.Second)) {
		t.Fatalf("unexpected finished time %v (has=%v)", got.FinishedTime, got.HasFinishedTime)
	}
}

func TestTradeRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rec := TradeRecord{
		Exchange: "beta",
		Symbol:   "BTCUSD",
		Time:     base,
		Items: []TradeItem{
			{TransactionTime: base.Add(-30 * time.Millisecond), Price: "100", Amount: "0.5"},
		},
	}
	if err := store.InsertTrade(ctx, rec); err != nil {
		t.Fatalf("insert trade: %v", err)
	}
	records, err := store.RecentTrades(ctx, 10)
	if err != nil {
		t.Fatalf("read trades: %v", err)
	}
	if len(records) != 1 || records[0].Items[0].Price != "100" {
		t.Fatalf("unexpected trade records %+v", records)
	}
}

func TestBookRecordFromDepth(t *testing.T) {
	tp := book.TradePlace{Exchange: "alpha", Symbol: "BTCUSD"}
	depth := book.Depth{
		Bids: []book.PriceLevel{{Price: dec(100.5), Amount: dec(2)}},
		Asks: []book.PriceLevel{{Price: dec(101), Amount: dec(3)}},
	}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := BookRecordFromDepth(tp, depth, at, time.Time{}, false)
	if rec.Exchange != "alpha" || rec.Symbol != "BTCUSD" {
		t.Fatalf("unexpected trade place %s:%s", rec.Exchange, rec.Symbol)
	}
	if rec.HasExchangeTime {
		t.Fatalf("expected no exchange time")
	}
	if rec.Bids[0].Price != "100.5" || rec.Asks[0].Amount != "3" {
		t.Fatalf("unexpected levels %+v / %+v", rec.Bids, rec.Asks)
	}
}

func TestRebindPostgresPlaceholders(t *testing.T) {
	s := &Store{postgres: true}
	got := s.rebind("INSERT INTO t (a, b, c) VALUES (?, ?, ?)")
	want := "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	s.postgres = false
	if got := s.rebind("SELECT ?"); got != "SELECT ?" {
		t.Fatalf("expected sqlite query unchanged, got %q", got)
	}
}
