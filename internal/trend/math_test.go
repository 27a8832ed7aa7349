package trend

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"mx-trend-bot/internal/book"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestPriceOffset(t *testing.T) {
	got := PriceOffset(dec(105), dec(100), dec(3))
	if !got.Equal(dec(2)) {
		t.Fatalf("expected offset 2, got %s", got)
	}
}

func TestReferenceThreshold(t *testing.T) {
	got := ReferenceThreshold(dec(20000), dec(0.001))
	if !got.Equal(dec(20)) {
		t.Fatalf("expected threshold 20, got %s", got)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		reference float64
		target    float64
		side      book.Side
		threshold float64
		want      Trend
	}{
		{"sell offset below band", 95, 100, book.Sell, 2, TrendNegative},
		{"sell offset above band", 105, 100, book.Sell, 2, TrendPositive},
		{"sell offset inside band", 101, 100, book.Sell, 2, TrendNone},
		{"buy offset above band", 105, 100, book.Buy, 2, TrendNegative},
		{"buy offset below band", 95, 100, book.Buy, 2, TrendPositive},
		{"buy offset inside band", 99, 100, book.Buy, 2, TrendNone},
		{"zero threshold sell positive", 100.01, 100, book.Sell, 0, TrendPositive},
		{"zero threshold buy negative", 100.01, 100, book.Buy, 0, TrendNegative},
		{"zero offset is none", 100, 100, book.Sell, 0, TrendNone},
	}
	for _, tc := range cases {
		got := Classify(dec(tc.reference), dec(tc.target), decimal.Decimal{}, tc.side, dec(tc.threshold), nil)
		if got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestClassifyAccountsForEquilibrium(t *testing.T) {
	// Offset 5 is fully explained by the equilibrium baseline.
	got := Classify(dec(105), dec(100), dec(5), book.Sell, decimal.Decimal{}, nil)
	if got != TrendNone {
		t.Fatalf("expected none once equilibrium removes the offset, got %s", got)
	}
}

func TestClassifyExplanation(t *testing.T) {
	expl := &Explanation{}
	Classify(dec(105), dec(100), decimal.Decimal{}, book.Sell, dec(2), expl)
	reasons := expl.Reasons()
	if len(reasons) != 1 {
		t.Fatalf("expected one reason, got %d", len(reasons))
	}
	if !strings.Contains(reasons[0], "POSITIVE") || !strings.Contains(reasons[0], "referencePrice 105") {
		t.Fatalf("unexpected reason: %s", reasons[0])
	}
}

func TestNilExplanationIsNoop(t *testing.T) {
	var expl *Explanation
	expl.AddReason("ignored")
	if expl.Reasons() != nil {
		t.Fatalf("expected nil reasons from nil explanation")
	}
}
