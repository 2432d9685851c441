package store

import (
	"testing"
	"time"

	"github.com/dgnsrekt/chart_vault/internal/chartimg"
)

func TestObjectKeyFormat(t *testing.T) {
	meta := chartimg.Meta{
		Symbol:      "DRIFT:SOL-PERP",
		Interval:    "1D",
		Width:       800,
		Height:      600,
		Theme:       "dark",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 678_000_000, time.UTC),
	}

	want := "charts/2026-01-02T03-04-05-678Z_DRIFT_SOL_PERP_1D_dark_800x600.png"
	if got := ObjectKey(meta); got != want {
		t.Fatalf("ObjectKey() = %q; want %q", got, want)
	}
}

func TestObjectKeyDeterministic(t *testing.T) {
	meta := chartimg.Meta{
		Symbol:      "BINANCE:BTC/USDT",
		Interval:    "4h",
		Width:       1200,
		Height:      900,
		Theme:       "light",
		GeneratedAt: time.Date(2026, 8, 27, 23, 59, 59, 1_000_000, time.UTC),
	}

	first := ObjectKey(meta)
	second := ObjectKey(meta)
	if first != second {
		t.Fatalf("ObjectKey() not deterministic: %q vs %q", first, second)
	}
	if first != "charts/2026-08-27T23-59-59-001Z_BINANCE_BTC_USDT_4h_light_1200x900.png" {
		t.Fatalf("ObjectKey() = %q", first)
	}
}

func TestObjectKeyDistinguishesTimestamps(t *testing.T) {
	meta := chartimg.Meta{
		Symbol:      "BINANCE:BTCUSDT",
		Interval:    "1D",
		Width:       800,
		Height:      600,
		Theme:       "dark",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	later := meta
	later.GeneratedAt = meta.GeneratedAt.Add(time.Millisecond)

	if ObjectKey(meta) == ObjectKey(later) {
		t.Fatal("keys collide across millisecond timestamps")
	}
}
