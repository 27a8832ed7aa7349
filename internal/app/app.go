package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"mx-trend-bot/internal/alerts"
	"mx-trend-bot/internal/book"
	"mx-trend-bot/internal/clock"
	"mx-trend-bot/internal/config"
	"mx-trend-bot/internal/history"
	"mx-trend-bot/internal/metrics"
	"mx-trend-bot/internal/orders"
	"mx-trend-bot/internal/trend"
)

// App owns every long-lived component and the wiring between them. Book
// events enter through ApplyBookEvent, flow into the snapshot cache, the
// history writer, and the trend coordinator, and leave as equilibrium
// answers and operator alerts.
type App struct {
	cfg         *config.Config
	log         *zap.Logger
	clk         clock.Clock
	prom        *metrics.Prometheus
	store       *history.Store
	writer      *history.Writer
	snapshots   *book.Cache
	orders      *orders.Registry
	coordinator *trend.Coordinator
	alerts      *alerts.Telegram
}

func New(cfg *config.Config, log *zap.Logger, clk clock.Clock) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real
	}
	prom := metrics.NewPrometheus()

	store, err := history.Open(cfg.History, log)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	writer := history.NewWriter(store, cfg.History.QueueSize, log, prom.Metrics)

	snapshots := book.NewCache()
	registry := orders.NewRegistry()

	coordinator, err := trend.NewCoordinator(
		strategiesFromConfig(cfg.Strategies),
		trendParams(cfg.Trend),
		snapshots,
		registry,
		clk,
		log,
		prom.Metrics,
	)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	a := &App{
		cfg:         cfg,
		log:         log,
		clk:         clk,
		prom:        prom,
		store:       store,
		writer:      writer,
		snapshots:   snapshots,
		orders:      registry,
		coordinator: coordinator,
		alerts:      alerts.NewTelegram(cfg.Telegram, log),
	}
	coordinator.OnTransition(a.notifyTransition)
	return a, nil
}

func trendParams(cfg config.TrendConfig) trend.Params {
	params := trend.DefaultParams()
	if cfg.WindowPeriod > 0 {
		params.WindowPeriod = cfg.WindowPeriod
	}
	if cfg.ResetDelay > 0 {
		params.ResetDelay = cfg.ResetDelay
	}
	if cfg.TargetSpreadThreshold > 0 {
		params.TargetSpreadThreshold = decimal.NewFromFloat(cfg.TargetSpreadThreshold)
	}
	if cfg.ReferenceDeltaPriceThreshold > 0 {
		params.DeltaPriceThreshold = decimal.NewFromFloat(cfg.ReferenceDeltaPriceThreshold)
	}
	if cfg.PercentileRate > 0 {
		params.PercentileRate = decimal.NewFromFloat(cfg.PercentileRate)
	}
	return params
}

func strategiesFromConfig(configs []config.StrategyConfig) []trend.Strategy {
	strategies := make([]trend.Strategy, 0, len(configs))
	for _, sc := range configs {
		strategies = append(strategies, trend.Strategy{
			Target:                           book.TradePlace{Exchange: sc.Target.Exchange, Symbol: sc.Target.Symbol},
			Reference:                        book.TradePlace{Exchange: sc.Reference.Exchange, Symbol: sc.Reference.Symbol},
			ReferenceDeltaPriceThresholdRate: decimal.NewFromFloat(sc.ReferenceDeltaPriceThresholdRate),
		})
	}
	return strategies
}

// Run starts the background components and blocks until the context is
// canceled. In replay mode it drains recorded book events through the
// coordinator and returns.
func (a *App) Run(ctx context.Context) error {
	a.coordinator.Start()
	a.writer.Start(ctx)

	if a.cfg.Metrics.Enabled {
		go a.serveMetrics(ctx)
	}

	if a.cfg.Replay.Enabled {
		return a.replay(ctx)
	}

	<-ctx.Done()
	return nil
}

func (a *App) Close() error {
	return a.store.Close()
}

// ApplyBookEvent is the single entry point for live book updates: it caches
// the snapshot, records it, and drives the dependent equilibrium states.
func (a *App) ApplyBookEvent(tp book.TradePlace, depth book.Depth, exchangeTime time.Time, hasExchangeTime bool) {
	a.snapshots.Put(tp, depth)
	a.writer.EnqueueBook(history.BookRecordFromDepth(tp, depth, a.clk.Now(), exchangeTime, hasExchangeTime))
	a.coordinator.OnBookEvent(tp)
}

func (a *App) RecordOrder(rec history.OrderRecord) {
	a.writer.EnqueueOrder(rec)
}

func (a *App) RecordTrade(rec history.TradeRecord) {
	a.writer.EnqueueTrade(rec)
}

// Orders exposes the open order registry so exchange adapters can keep it
// current.
func (a *App) Orders() *orders.Registry {
	return a.orders
}

func (a *App) Equilibrium(tp book.TradePlace, side book.Side) (decimal.Decimal, bool) {
	return a.coordinator.Equilibrium(tp, side)
}

func (a *App) notifyTransition(ev trend.TransitionEvent) {
	var message string
	switch ev.Kind {
	case trend.TransitionProhibitionStarted:
		message = fmt.Sprintf("prohibition started for %s", ev.Target)
	case trend.TransitionProhibitionEnded:
		message = fmt.Sprintf("prohibition ended for %s", ev.Target)
	default:
		return
	}
	// The coordinator calls transition hooks inline on the book event path.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.alerts.Send(ctx, message); err != nil {
			a.log.Warn("transition alert failed", zap.Error(err))
		}
	}()
}

func (a *App) serveMetrics(ctx context.Context) {
	server := &http.Server{
		Addr:    a.cfg.Metrics.Listen,
		Handler: a.prom.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	a.log.Info("metrics server listening", zap.String("addr", a.cfg.Metrics.Listen))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.log.Warn("metrics server stopped", zap.Error(err))
	}
}

// replay feeds recorded book events back through the coordinator in their
// original order. With a manual clock, time follows the recording instead of
// the wall.
func (a *App) replay(ctx context.Context) error {
	if a.store == nil {
		return errors.New("replay requires history to be enabled")
	}
	records, err := a.store.RecentBookEvents(ctx, a.cfg.Replay.Limit)
	if err != nil {
		return fmt.Errorf("load recorded book events: %w", err)
	}
	a.log.Info("replaying recorded book events", zap.Int("count", len(records)))
	manual, hasManual := a.clk.(*clock.Manual)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		depth, err := depthFromRecord(rec)
		if err != nil {
			a.log.Warn("skipping malformed book record", zap.Error(err), zap.Time("ts", rec.Time))
			continue
		}
		if hasManual {
			manual.Set(rec.Time)
		}
		tp := book.TradePlace{Exchange: rec.Exchange, Symbol: rec.Symbol}
		a.snapshots.Put(tp, depth)
		a.coordinator.OnBookEvent(tp)
	}
	return nil
}

func depthFromRecord(rec history.BookRecord) (book.Depth, error) {
	depth := book.Depth{
		Bids: make([]book.PriceLevel, 0, len(rec.Bids)),
		Asks: make([]book.PriceLevel, 0, len(rec.Asks)),
	}
	for _, lvl := range rec.Bids {
		parsed, err := parseLevel(lvl)
		if err != nil {
			return book.Depth{}, err
		}
		depth.Bids = append(depth.Bids, parsed)
	}
	for _, lvl := range rec.Asks {
		parsed, err := parseLevel(lvl)
		if err != nil {
			return book.Depth{}, err
		}
		depth.Asks = append(depth.Asks, parsed)
	}
	return depth, nil
}

func parseLevel(lvl history.BookLevel) (book.PriceLevel, error) {
	price, err := decimal.NewFromString(lvl.Price)
	if err != nil {
		return book.PriceLevel{}, fmt.Errorf("parse level price %q: %w", lvl.Price, err)
	}
	amount, err := decimal.NewFromString(lvl.Amount)
	if err != nil {
		return book.PriceLevel{}, fmt.Errorf("parse level amount %q: %w", lvl.Amount, err)
	}
	return book.PriceLevel{Price: price, Amount: amount}, nil
}
