package contracts

import (
	"math"
	"testing"
	"time"
)

func validBar() Bar {
	return Bar{
		Symbol: "600000.SH",
		Date:   time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Open:   19.8,
		High:   20.1,
		Low:    19.7,
		Close:  20.0,
		Volume: 1e6,
	}
}

func TestBarValidate(t *testing.T) {
	b := validBar()
	if err := b.Validate(); err != nil {
		t.Fatalf("valid bar rejected: %v", err)
	}
}

func TestBarValidate_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Bar)
	}{
		{"nan close", func(b *Bar) { b.Close = math.NaN() }},
		{"inf high", func(b *Bar) { b.High = math.Inf(1) }},
		{"nan volume", func(b *Bar) { b.Volume = math.NaN() }},
		{"nan pct change", func(b *Bar) { b.PctChange = math.NaN() }},
		{"zero close", func(b *Bar) { b.Close = 0 }},
		{"negative close", func(b *Bar) { b.Close = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBar()
			tt.mutate(&b)
			if err := b.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusFilled, StatusCancelled, StatusRejected}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusSubmitted} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
