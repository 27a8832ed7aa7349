package history

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"mx-trend-bot/internal/metrics"
)

// Writer drains history records onto the store from a bounded queue so the
// book event path never blocks on the database. Records are dropped when the
// queue is full.
type Writer struct {
	store   *Store
	log     *zap.Logger
	metrics *metrics.Metrics
	books   chan BookRecord
	orders  chan OrderRecord
	trades  chan TradeRecord
	started atomic.Bool
	dropped atomic.Uint64
}

func NewWriter(store *Store, queueSize int, log *zap.Logger, m *metrics.Metrics) *Writer {
	if store == nil {
		return nil
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Writer{
		store:   store,
		log:     log,
		metrics: m,
		books:   make(chan BookRecord, queueSize),
		orders:  make(chan OrderRecord, queueSize),
		trades:  make(chan TradeRecord, queueSize),
	}
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) EnqueueBook(rec BookRecord) {
	if w == nil {
		return
	}
	select {
	case w.books <- rec:
		return
	default:
		w.drop("book")
	}
}

func (w *Writer) EnqueueOrder(rec OrderRecord) {
	if w == nil {
		return
	}
	select {
	case w.orders <- rec:
		return
	default:
		w.drop("order")
	}
}

func (w *Writer) EnqueueTrade(rec TradeRecord) {
	if w == nil {
		return
	}
	select {
	case w.trades <- rec:
		return
	default:
		w.drop("trade")
	}
}

func (w *Writer) drop(kind string) {
	w.metrics.RecordsDropped.Inc()
	if w.dropped.Add(1) == 1 && w.log != nil {
		w.log.Warn("history queue full, dropping records", zap.String("kind", kind))
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-w.books:
			if err := w.store.InsertBookEvent(ctx, rec); err != nil && w.log != nil {
				w.log.Warn("history book insert failed", zap.Error(err))
			}
		case rec := <-w.orders:
			if err := w.store.InsertOrder(ctx, rec); err != nil && w.log != nil {
				w.log.Warn("history order insert failed", zap.Error(err))
			}
		case rec := <-w.trades:
			if err := w.store.InsertTrade(ctx, rec); err != nil && w.log != nil {
				w.log.Warn("history trade insert failed", zap.Error(err))
			}
		}
	}
}
