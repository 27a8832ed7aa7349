package history

import (
	"time"

	"mx-trend-bot/internal/book"
)

type OrderStatus string

const (
	OrderCreating  OrderStatus = "CREATING"
	OrderCreated   OrderStatus = "CREATED"
	OrderCanceling OrderStatus = "CANCELING"
	OrderCanceled  OrderStatus = "CANCELED"
)

type StatusChange struct {
	Status OrderStatus `msgpack:"status"`
	Time   time.Time   `msgpack:"time"`
}

// OrderRecord captures the lifecycle of a single client order. FinishedTime
// is the moment the order left the book, when known.
type OrderRecord struct {
	ClientOrderID   string         `msgpack:"client_order_id"`
	Exchange        string         `msgpack:"exchange"`
	Time            time.Time      `msgpack:"time"`
	StatusChanges   []StatusChange `msgpack:"status_changes"`
	FinishedTime    time.Time      `msgpack:"finished_time"`
	HasFinishedTime bool           `msgpack:"has_finished_time"`
}

type TradeItem struct {
	TransactionTime time.Time `msgpack:"transaction_time"`
	Price           string    `msgpack:"price"`
	Amount          string    `msgpack:"amount"`
}

type TradeRecord struct {
	Exchange string      `msgpack:"exchange"`
	Symbol   string      `msgpack:"symbol"`
	Time     time.Time   `msgpack:"time"`
	Items    []TradeItem `msgpack:"items"`
}

// BookLevel stores price and amount as decimal strings so replay rebuilds
// the exact values the exchange sent.
type BookLevel struct {
	Price  string `msgpack:"price"`
	Amount string `msgpack:"amount"`
}

type BookRecord struct {
	Exchange        string      `msgpack:"exchange"`
	Symbol          string      `msgpack:"symbol"`
	Time            time.Time   `msgpack:"time"`
	ExchangeTime    time.Time   `msgpack:"exchange_time"`
	HasExchangeTime bool        `msgpack:"has_exchange_time"`
	Bids            []BookLevel `msgpack:"bids"`
	Asks            []BookLevel `msgpack:"asks"`
}

func BookRecordFromDepth(tp book.TradePlace, depth book.Depth, at time.Time, exchangeTime time.Time, hasExchangeTime bool) BookRecord {
	rec := BookRecord{
		Exchange:        tp.Exchange,
		Symbol:          tp.Symbol,
		Time:            at,
		ExchangeTime:    exchangeTime,
		HasExchangeTime: hasExchangeTime,
		Bids:            make([]BookLevel, 0, len(depth.Bids)),
		Asks:            make([]BookLevel, 0, len(depth.Asks)),
	}
	for _, lvl := range depth.Bids {
		rec.Bids = append(rec.Bids, BookLevel{Price: lvl.Price.String(), Amount: lvl.Amount.String()})
	}
	for _, lvl := range depth.Asks {
		rec.Asks = append(rec.Asks, BookLevel{Price: lvl.Price.String(), Amount: lvl.Amount.String()})
	}
	return rec
}
