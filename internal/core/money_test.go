package core

import (
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.0", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{"$42.50", 42.5, true},
		{"0", 0, true},
		{" 2.50 ", 2.5, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e3", 0, false},
		{"", 0, false},
		{"$", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestRoundCents(t *testing.T) {
	cases := []struct {
		in, out float64
	}{
		{30.5 * 0.70, 21.35},
		{0, 0},
		// Midpoints round on the shortest decimal form, not the nearest
		// binary value, so 1.005 goes up.
		{1.005, 1.01},
		{2.675, 2.68},
		{0.125, 0.13},
		{-1.005, -1.01},
		{10.004, 10},
		{123.456, 123.46},
	}
	for _, tc := range cases {
		if got := RoundCents(tc.in); got != tc.out {
			t.Fatalf("RoundCents(%v) = %v, want %v", tc.in, got, tc.out)
		}
	}
	if !math.IsNaN(RoundCents(math.NaN())) {
		t.Fatalf("NaN should pass through")
	}
}

func TestFormatUSD(t *testing.T) {
	cases := map[float64]string{
		0:          "$0.00",
		21.35:      "$21.35",
		1234.5:     "$1,234.50",
		1234567.89: "$1,234,567.89",
		-42:        "-$42.00",
		999.999:    "$1,000.00",
	}
	for in, want := range cases {
		if got := FormatUSD(in); got != want {
			t.Fatalf("FormatUSD(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatMiles(t *testing.T) {
	if got := FormatMiles(30.55); got != "30.6" {
		t.Fatalf("FormatMiles = %q", got)
	}
	if got := FormatMiles(math.Inf(1)); got != "0.0" {
		t.Fatalf("FormatMiles(Inf) = %q", got)
	}
}
