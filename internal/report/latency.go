package report

import (
	"time"

	"mx-trend-bot/internal/history"
)

// CreationLatencies measures creating-to-created time per order, grouped by
// exchange. Orders without both status changes are filtered and counted.
func CreationLatencies(orders []history.OrderRecord) (Grouped, int) {
	return statusChangeLatencies(orders, history.OrderCreating, history.OrderCreated)
}

// CancellationLatencies measures canceling-to-canceled time per order.
func CancellationLatencies(orders []history.OrderRecord) (Grouped, int) {
	return statusChangeLatencies(orders, history.OrderCanceling, history.OrderCanceled)
}

func statusChangeLatencies(orders []history.OrderRecord, from, to history.OrderStatus) (Grouped, int) {
	grouped := Grouped{}
	filtered := 0
	for _, order := range orders {
		start, okStart := firstStatusChange(order, from)
		end, okEnd := firstStatusChange(order, to)
		if len(order.StatusChanges) < 2 || !okStart || !okEnd {
			filtered++
			continue
		}
		grouped.bucket(order.Exchange).Add(millisBetween(start, end))
	}
	return grouped, filtered
}

func firstStatusChange(order history.OrderRecord, status history.OrderStatus) (time.Time, bool) {
	for _, change := range order.StatusChanges {
		if change.Status == status {
			return change.Time, true
		}
	}
	return time.Time{}, false
}

// TradeLatencies measures local receive time against the exchange
// transaction time of each trade item.
func TradeLatencies(trades []history.TradeRecord) Grouped {
	grouped := Grouped{}
	for _, trade := range trades {
		for _, item := range trade.Items {
			grouped.bucket(trade.Exchange).Add(millisBetween(item.TransactionTime, trade.Time))
		}
	}
	return grouped
}

// BookLatencies measures local receive time against the exchange book
// timestamp. Returns the count of events that carried no exchange time.
func BookLatencies(books []history.BookRecord) (Grouped, int) {
	grouped := Grouped{}
	missing := 0
	for _, book := range books {
		if !book.HasExchangeTime {
			missing++
			continue
		}
		grouped.bucket(book.Exchange).Add(millisBetween(book.ExchangeTime, book.Time))
	}
	return grouped, missing
}

func millisBetween(from, to time.Time) int {
	return int(to.Sub(from) / time.Millisecond)
}
