package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"mx-trend-bot/internal/config"
	"mx-trend-bot/internal/history"
	"mx-trend-bot/internal/report"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	kind := flag.String("report", "creation", "report kind: creation, cancellation, trades, books or gaps")
	limit := flag.Int("limit", 0, "max records to load, 0 for all")
	outPath := flag.String("out", "", "output file, stdout when empty")
	flag.Parse()

	if err := run(*configPath, *kind, *limit, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "report failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, kind string, limit int, outPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled in %s", configPath)
	}
	store, err := history.Open(cfg.History, zap.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	var out io.Writer = os.Stdout
	if outPath != "" {
		file, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	ctx := context.Background()
	switch kind {
	case "creation":
		orders, err := store.RecentOrders(ctx, limit)
		if err != nil {
			return err
		}
		grouped, filtered := report.CreationLatencies(orders)
		fmt.Fprintf(out, "Filtered %d orders\n", filtered)
		fmt.Fprintln(out, "Distribution of orders latencies:")
		return grouped.Render(out)
	case "cancellation":
		orders, err := store.RecentOrders(ctx, limit)
		if err != nil {
			return err
		}
		grouped, filtered := report.CancellationLatencies(orders)
		fmt.Fprintf(out, "Filtered %d orders\n", filtered)
		fmt.Fprintln(out, "Distribution of orders latencies:")
		return grouped.Render(out)
	case "trades":
		trades, err := store.RecentTrades(ctx, limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Distribution of trades latencies:")
		return report.TradeLatencies(trades).Render(out)
	case "books":
		books, err := store.RecentBookEvents(ctx, limit)
		if err != nil {
			return err
		}
		grouped, missing := report.BookLatencies(books)
		fmt.Fprintf(out, "%d book events without exchange time\n", missing)
		fmt.Fprintln(out, "Distribution of latencies:")
		return grouped.Render(out)
	case "gaps":
		orders, err := store.RecentOrders(ctx, limit)
		if err != nil {
			return err
		}
		return report.OrderGapAnalysis(orders).Render(out)
	default:
		return fmt.Errorf("unknown report kind %q", kind)
	}
}
