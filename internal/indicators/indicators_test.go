package indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/wonny/sycamore/internal/contracts"
)

func makeBars(n int, close func(i int) float64, volume func(i int) float64) []contracts.Bar {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.Bar, n)
	for i := 0; i < n; i++ {
		c := close(i)
		bars[i] = contracts.Bar{
			Symbol: "600000.SH",
			Date:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c + 0.1,
			Low:    c - 0.1,
			Close:  c,
			Volume: volume(i),
		}
	}
	return bars
}

func TestRequiredBars(t *testing.T) {
	if got := RequiredBars(60); got != 70 {
		t.Errorf("RequiredBars(60) = %d, want 70", got)
	}
	if got := RequiredBars(20); got != 30 {
		t.Errorf("RequiredBars(20) = %d, want 30", got)
	}
}

func TestCompute_InsufficientHistory(t *testing.T) {
	bars := makeBars(69, func(i int) float64 { return 10 }, func(i int) float64 { return 1e6 })

	_, err := Compute(bars, 5, 60)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestCompute_MovingAverages(t *testing.T) {
	// Strictly rising closes: both averages must be up and the close
	// must sit above the short average.
	bars := makeBars(70, func(i int) float64 { return 10 + 0.05*float64(i) }, func(i int) float64 { return 1e6 })

	snap, err := Compute(bars, 5, 60)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	// closes 65..69 are 13.25, 13.30, 13.35, 13.40, 13.45
	wantShort := (13.25 + 13.30 + 13.35 + 13.40 + 13.45) / 5
	if math.Abs(snap.MAShort-wantShort) > 1e-9 {
		t.Errorf("MAShort = %f, want %f", snap.MAShort, wantShort)
	}
	if !snap.MAShortUp || !snap.MALongUp {
		t.Errorf("expected both averages trending up, got short=%v long=%v", snap.MAShortUp, snap.MALongUp)
	}
	if !snap.IsNewHigh {
		t.Error("rising series should mark a new high")
	}
	if bars[69].Close < snap.MAShort {
		t.Error("last close should hold above the short average")
	}
}

func TestCompute_FallingTrend(t *testing.T) {
	bars := makeBars(70, func(i int) float64 { return 20 - 0.05*float64(i) }, func(i int) float64 { return 1e6 })

	snap, err := Compute(bars, 5, 60)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if snap.MAShortUp || snap.MALongUp {
		t.Errorf("falling series must not trend up, got short=%v long=%v", snap.MAShortUp, snap.MALongUp)
	}
	if snap.IsNewHigh {
		t.Error("falling series must not mark a new high")
	}
}

func TestCompute_VolumeRatio(t *testing.T) {
	// Flat volume except a doubled last bar: ratio is against the
	// 5-day mean including today.
	bars := makeBars(70, func(i int) float64 { return 10 + 0.05*float64(i) }, func(i int) float64 {
		if i == 69 {
			return 2e6
		}
		return 1e6
	})

	snap, err := Compute(bars, 5, 60)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	want := 2e6 / ((1e6*4 + 2e6) / 5)
	if math.Abs(snap.VolumeRatio-want) > 1e-9 {
		t.Errorf("VolumeRatio = %f, want %f", snap.VolumeRatio, want)
	}
}

func TestCompute_VolumeStability(t *testing.T) {
	// Ten-bar window: nine bars at 1e6, one at 2e6. Sample stdev
	// (n-1) over mean.
	bars := makeBars(70, func(i int) float64 { return 10 + 0.05*float64(i) }, func(i int) float64 {
		if i == 69 {
			return 2e6
		}
		return 1e6
	})

	snap, err := Compute(bars, 5, 60)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	mean := 1.1e6
	variance := (9*0.1e6*0.1e6 + 0.9e6*0.9e6) / 9
	want := math.Sqrt(variance) / mean
	if math.Abs(snap.VolumeStability-want) > 1e-9 {
		t.Errorf("VolumeStability = %f, want %f", snap.VolumeStability, want)
	}
}

func TestCompute_ZeroVolumeWindow(t *testing.T) {
	// An all-zero volume window makes the volume ratio undefined; the
	// symbol is tagged as a data fault rather than scored.
	bars := makeBars(70, func(i int) float64 { return 10 + 0.05*float64(i) }, func(i int) float64 { return 0 })

	if _, err := Compute(bars, 5, 60); err == nil {
		t.Fatal("zero-volume window must be reported as a data fault")
	}
}

func TestCompute_MalformedBar(t *testing.T) {
	bars := makeBars(70, func(i int) float64 { return 10 + 0.05*float64(i) }, func(i int) float64 { return 1e6 })
	bars[69].Close = math.NaN()

	if _, err := Compute(bars, 5, 60); err == nil {
		t.Fatal("NaN close must be reported as a data fault")
	}
}
