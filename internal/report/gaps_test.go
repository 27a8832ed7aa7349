package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"mx-trend-bot/internal/history"
)

func TestOrderGapAnalysisBucketsGaps(t *testing.T) {
	orders := []history.OrderRecord{
		orderWithLifecycle("a", "alpha", t0, 10*time.Millisecond, t0.Add(time.Second)),
		// Created 50ms after a finished.
		orderWithLifecycle("b", "alpha", t0.Add(1050*time.Millisecond), 10*time.Millisecond, t0.Add(2*time.Second)),
		// Created while b is still live, so the gap is zero.
		orderWithLifecycle("c", "alpha", t0.Add(1500*time.Millisecond), 10*time.Millisecond, t0.Add(3*time.Second)),
	}
	report := OrderGapAnalysis(orders)
	if report.Filtered != 0 {
		t.Fatalf("expected no filtered orders, got %d", report.Filtered)
	}
	// a has no predecessor at all.
	if report.NotFoundPrevious != 1 {
		t.Fatalf("expected 1 order without predecessor, got %d", report.NotFoundPrevious)
	}
	if got := report.Distribution[50]; got != 1 {
		t.Fatalf("expected 1 gap of 50ms, got %d", got)
	}
	if got := report.Distribution[0]; got != 1 {
		t.Fatalf("expected 1 overlap in the zero bucket, got %d", got)
	}
}

func TestOrderGapAnalysisRecordsBigDelays(t *testing.T) {
	orders := []history.OrderRecord{
		orderWithLifecycle("a", "alpha", t0, 10*time.Millisecond, t0.Add(time.Second)),
		orderWithLifecycle("b", "alpha", t0.Add(1300*time.Millisecond), 10*time.Millisecond, t0.Add(2*time.Second)),
	}
	report := OrderGapAnalysis(orders)
	if len(report.BigDelays) != 1 {
		t.Fatalf("expected 1 big delay, got %d", len(report.BigDelays))
	}
	delay := report.BigDelays[0]
	if delay.DelayMillis != 300 {
		t.Fatalf("expected 300ms delay, got %d", delay.DelayMillis)
	}
	if delay.PreviousOrder != "a" || delay.OrderID != "b" {
		t.Fatalf("unexpected pair %s -> %s", delay.PreviousOrder, delay.OrderID)
	}
	if got := report.Distribution[300]; got != 1 {
		t.Fatalf("expected the big delay counted in the distribution, got %d", got)
	}
}

func TestOrderGapAnalysisFiltersIncompleteOrders(t *testing.T) {
	orders := []history.OrderRecord{
		{ClientOrderID: "short", StatusChanges: []history.StatusChange{{Status: history.OrderCreating, Time: t0}}},
	}
	report := OrderGapAnalysis(orders)
	if report.Filtered != 1 {
		t.Fatalf("expected 1 filtered order, got %d", report.Filtered)
	}
}

func TestGapReportRender(t *testing.T) {
	orders := []history.OrderRecord{
		orderWithLifecycle("a", "alpha", t0, 10*time.Millisecond, t0.Add(time.Second)),
		orderWithLifecycle("b", "alpha", t0.Add(1300*time.Millisecond), 10*time.Millisecond, t0.Add(2*time.Second)),
	}
	report := OrderGapAnalysis(orders)
	var buf bytes.Buffer
	if err := report.Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Distribution of delays between orders:") {
		t.Fatalf("missing distribution header in %q", out)
	}
	if !strings.Contains(out, "000300 ms, count 1") {
		t.Fatalf("missing 300ms bucket in %q", out)
	}
	if !strings.Contains(out, "Delay: 300") {
		t.Fatalf("missing big delay section in %q", out)
	}
	if !strings.Contains(out, "Big delays sum 1") {
		t.Fatalf("missing big delay summary in %q", out)
	}
}
