package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"mx-trend-bot/internal/config"
)

const writeTimeout = 3 * time.Second

// Store persists market history as msgpack payloads keyed by time and trade
// place. The same schema runs on sqlite for local capture and on postgres
// for shared deployments.
type Store struct {
	db       *sql.DB
	log      *zap.Logger
	schema   string
	postgres bool
}

func Open(cfg config.HistoryConfig, log *zap.Logger) (*Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("history dsn is required")
	}
	postgres := cfg.Driver == "postgres"
	driver := "sqlite"
	if postgres {
		driver = "pgx"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, log: log, postgres: postgres}
	if postgres {
		schema := strings.TrimSpace(cfg.Schema)
		if schema == "" {
			schema = "public"
		}
		store.schema = schema
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if s.db == nil {
		return errors.New("history db not initialized")
	}
	if s.postgres && s.schema != "public" {
		if err := s.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", s.schema)); err != nil {
			return err
		}
	}
	blob, timestamp := "BLOB", "TIMESTAMP"
	if s.postgres {
		blob, timestamp = "BYTEA", "TIMESTAMPTZ"
	}
	if err := s.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts %s NOT NULL,
		exchange TEXT NOT NULL,
		symbol TEXT NOT NULL,
		payload %s NOT NULL
	)`, s.table("book_events"), timestamp, blob)); err != nil {
		return err
	}
	if err := s.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts %s NOT NULL,
		exchange TEXT NOT NULL,
		client_order_id TEXT NOT NULL,
		payload %s NOT NULL
	)`, s.table("orders"), timestamp, blob)); err != nil {
		return err
	}
	if err := s.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts %s NOT NULL,
		exchange TEXT NOT NULL,
		symbol TEXT NOT NULL,
		payload %s NOT NULL
	)`, s.table("trades"), timestamp, blob)); err != nil {
		return err
	}
	return s.exec(ctx, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_book_events_ts ON %s (ts)", s.table("book_events")))
}

func (s *Store) InsertBookEvent(ctx context.Context, rec BookRecord) error {
	payload, err := msgpack.Marshal(rec)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (ts, exchange, symbol, payload) VALUES (?, ?, ?, ?)", s.table("book_events"))
	return s.execArgs(ctx, query, rec.Time, rec.Exchange, rec.Symbol, payload)
}

func (s *Store) InsertOrder(ctx context.Context, rec OrderRecord) error {
	payload, err := msgpack.Marshal(rec)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (ts, exchange, client_order_id, payload) VALUES (?, ?, ?, ?)", s.table("orders"))
	return s.execArgs(ctx, query, rec.Time, rec.Exchange, rec.ClientOrderID, payload)
}

func (s *Store) InsertTrade(ctx context.Context, rec TradeRecord) error {
	payload, err := msgpack.Marshal(rec)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (ts, exchange, symbol, payload) VALUES (?, ?, ?, ?)", s.table("trades"))
	return s.execArgs(ctx, query, rec.Time, rec.Exchange, rec.Symbol, payload)
}

func (s *Store) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *Store) execArgs(ctx context.Context, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	return err
}

// rebind rewrites ? placeholders to the $n form pgx expects. Sqlite takes
// the query as written.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) table(name string) string {
	if s.schema == "" {
		return name
	}
	return s.schema + "." + name
}
