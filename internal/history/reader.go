package history

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// RecentBookEvents returns up to limit of the newest book records in
// ascending time order, ready for replay. A limit <= 0 means no limit.
func (s *Store) RecentBookEvents(ctx context.Context, limit int) ([]BookRecord, error) {
	payloads, err := s.recentPayloads(ctx, s.table("book_events"), limit)
	if err != nil {
		return nil, err
	}
	records := make([]BookRecord, 0, len(payloads))
	for _, payload := range payloads {
		var rec BookRecord
		if err := msgpack.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode book record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) RecentOrders(ctx context.Context, limit int) ([]OrderRecord, error) {
	payloads, err := s.recentPayloads(ctx, s.table("orders"), limit)
	if err != nil {
		return nil, err
	}
	records := make([]OrderRecord, 0, len(payloads))
	for _, payload := range payloads {
		var rec OrderRecord
		if err := msgpack.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode order record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) RecentTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	payloads, err := s.recentPayloads(ctx, s.table("trades"), limit)
	if err != nil {
		return nil, err
	}
	records := make([]TradeRecord, 0, len(payloads))
	for _, payload := range payloads {
		var rec TradeRecord
		if err := msgpack.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode trade record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) recentPayloads(ctx context.Context, table string, limit int) ([][]byte, error) {
	query := fmt.Sprintf("SELECT payload FROM %s ORDER BY ts DESC", table)
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payloads [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Newest-first from the query, flip to ascending.
	for i, j := 0, len(payloads)-1; i < j; i, j = i+1, j-1 {
		payloads[i], payloads[j] = payloads[j], payloads[i]
	}
	return payloads, nil
}
