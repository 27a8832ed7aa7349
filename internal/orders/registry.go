package orders

import (
	"sync"

	"mx-trend-bot/internal/book"
)

// Registry keeps the operator's not-yet-finished orders keyed by exchange and
// client order id. Execution gateways upsert and remove entries; the book
// filter reads them to strip self-liquidity from visible depth.
type Registry struct {
	mu   sync.RWMutex
	open map[string]map[string]book.OpenOrder
}

func NewRegistry() *Registry {
	return &Registry{open: make(map[string]map[string]book.OpenOrder)}
}

func (r *Registry) Upsert(exchange, clientOrderID string, order book.OpenOrder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, ok := r.open[exchange]
	if !ok {
		byID = make(map[string]book.OpenOrder)
		r.open[exchange] = byID
	}
	byID[clientOrderID] = order
}

// Remove drops a finished order. Unknown ids are a no-op.
func (r *Registry) Remove(exchange, clientOrderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if byID, ok := r.open[exchange]; ok {
		delete(byID, clientOrderID)
	}
}

func (r *Registry) OpenOrders(exchange string) []book.OpenOrder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byID, ok := r.open[exchange]
	if !ok || len(byID) == 0 {
		return nil
	}
	list := make([]book.OpenOrder, 0, len(byID))
	for _, order := range byID {
		list = append(list, order)
	}
	return list
}
