package deduction

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultRates(t *testing.T) {
	r := DefaultRates()
	want := map[string]float64{"business": 0.70, "medicalMoving": 0.21, "charitable": 0.14}
	if len(r) != len(want) {
		t.Fatalf("expected %d rates, got %d", len(want), len(r))
	}
	for k, v := range want {
		if r[k] != v {
			t.Fatalf("rate %s = %v, want %v", k, r[k], v)
		}
	}
}

func TestResolve(t *testing.T) {
	r := DefaultRates()
	cases := []struct {
		key      string
		rate     float64
		resolved string
		known    bool
	}{
		{"", 0.70, "business", true},
		{"business", 0.70, "business", true},
		{"charitable", 0.14, "charitable", true},
		{"moving", 0.70, "business", false},
	}
	for _, tc := range cases {
		rate, resolved, known := r.Resolve(tc.key)
		if rate != tc.rate || resolved != tc.resolved || known != tc.known {
			t.Fatalf("Resolve(%q) = %v,%q,%v", tc.key, rate, resolved, known)
		}
	}
}

func TestMergeDoesNotMutate(t *testing.T) {
	base := DefaultRates()
	merged := base.Merge(map[string]float64{"business": 0.5})
	if base["business"] != 0.70 {
		t.Fatalf("base mutated")
	}
	if merged["business"] != 0.5 || merged["charitable"] != 0.14 {
		t.Fatalf("unexpected merge: %v", merged)
	}
}

func TestKeysSorted(t *testing.T) {
	got := DefaultRates().Keys()
	want := []string{"business", "charitable", "medicalMoving"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys() = %v", got)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultRates().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	bad := []RateTable{
		{},
		{"charitable": 0.14},
		{"business": -0.1},
		{"business": math.NaN()},
		{"business": 0.7, " ": 0.1},
	}
	for i, tbl := range bad {
		if err := tbl.Validate(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestValidateRateWrapsSentinel(t *testing.T) {
	for _, r := range []float64{-0.01, math.NaN(), math.Inf(1)} {
		if err := ValidateRate(r); !errors.Is(err, ErrInvalidRate) {
			t.Fatalf("ValidateRate(%v) = %v, want ErrInvalidRate", r, err)
		}
	}
	if err := ValidateRate(0); err != nil {
		t.Fatalf("ValidateRate(0) = %v", err)
	}
}
