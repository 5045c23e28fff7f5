// Package indicators computes the fixed indicator vector the screening
// pipeline reads per bar. It is deliberately not a general technical
// analysis toolkit: the vocabulary is exactly what the screen needs.
package indicators

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/sycamore/internal/contracts"
)

const (
	volumeRatioPeriod = 5  // volume vs trailing mean
	stabilityPeriod   = 10 // stdev/mean of volume
	newHighPeriod     = 20 // trailing high window

	// historyMargin is how many bars beyond the long average we demand
	// before trusting it.
	historyMargin = 10
)

// ErrInsufficientHistory means the symbol has too few bars for the
// long moving average to be trusted; callers skip the symbol for the day.
var ErrInsufficientHistory = errors.New("indicators: insufficient history")

// StabilityReject is the volume stability sentinel when the mean volume
// is zero. It fails any upper-bound check.
var StabilityReject = math.Inf(1)

// Snapshot is the derived, read-only indicator view over a rolling
// window of bars, evaluated at the window's last bar.
type Snapshot struct {
	MAShort         float64
	MALong          float64
	MAShortUp       bool
	MALongUp        bool
	VolumeRatio     float64
	VolumeStability float64
	IsNewHigh       bool
}

// RequiredBars is the minimum window length for the given long average.
func RequiredBars(maLong int) int {
	return maLong + historyMargin
}

// Compute evaluates the indicator vector over the trailing window
// ending at the last bar. Fewer than RequiredBars bars returns
// ErrInsufficientHistory; malformed numeric input returns an error so
// the caller can tag the symbol as a data fault.
func Compute(bars []contracts.Bar, maShort, maLong int) (Snapshot, error) {
	n := len(bars)
	if n < RequiredBars(maLong) {
		return Snapshot{}, ErrInsufficientHistory
	}

	latest := bars[n-1]
	if err := latest.Validate(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		MAShort:     meanClose(bars[n-maShort:]),
		MALong:      meanClose(bars[n-maLong:]),
		VolumeRatio: latest.Volume / meanVolume(bars[n-volumeRatioPeriod:]),
	}

	// Trend: today's average above yesterday's.
	snap.MAShortUp = snap.MAShort > meanClose(bars[n-1-maShort:n-1])
	snap.MALongUp = snap.MALong > meanClose(bars[n-1-maLong:n-1])

	volWindow := bars[n-stabilityPeriod:]
	if m := meanVolume(volWindow); m > 0 {
		snap.VolumeStability = stdevVolume(volWindow, m) / m
	} else {
		snap.VolumeStability = StabilityReject
	}

	high := latest.High
	maxHigh := math.Inf(-1)
	for _, b := range bars[n-newHighPeriod:] {
		if b.High > maxHigh {
			maxHigh = b.High
		}
	}
	snap.IsNewHigh = high >= maxHigh

	if math.IsNaN(snap.MAShort) || math.IsNaN(snap.MALong) || math.IsNaN(snap.VolumeRatio) {
		return Snapshot{}, fmt.Errorf("indicators: malformed window for %s", latest.Symbol)
	}
	return snap, nil
}

func meanClose(bars []contracts.Bar) float64 {
	sum := 0.0
	for _, b := range bars {
		sum += b.Close
	}
	return sum / float64(len(bars))
}

func meanVolume(bars []contracts.Bar) float64 {
	sum := 0.0
	for _, b := range bars {
		sum += b.Volume
	}
	return sum / float64(len(bars))
}

// stdevVolume is the sample standard deviation (n-1 denominator),
// matching the rolling stdev the screen thresholds were tuned against.
func stdevVolume(bars []contracts.Bar, mean float64) float64 {
	if len(bars) < 2 {
		return 0
	}
	variance := 0.0
	for _, b := range bars {
		diff := b.Volume - mean
		variance += diff * diff
	}
	variance /= float64(len(bars) - 1)
	return math.Sqrt(variance)
}
