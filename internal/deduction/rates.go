package deduction

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Standard rate categories, in USD per mile.
const (
	RateBusiness      = "business"
	RateMedicalMoving = "medicalMoving"
	RateCharitable    = "charitable"
)

// ErrInvalidRate is wrapped by every per-mile rate validation failure.
var ErrInvalidRate = errors.New("invalid rate")

// RateTable maps a rate category name to a per-mile rate.
type RateTable map[string]float64

// DefaultRates returns the 2025 IRS standard mileage rates.
func DefaultRates() RateTable {
	return RateTable{
		RateBusiness:      0.70,
		RateMedicalMoving: 0.21,
		RateCharitable:    0.14,
	}
}

// Resolve looks up key. An empty key means business; an unknown key
// falls back to the business rate and reports known=false.
func (t RateTable) Resolve(key string) (rate float64, resolved string, known bool) {
	if key == "" {
		return t[RateBusiness], RateBusiness, true
	}
	if r, ok := t[key]; ok {
		return r, key, true
	}
	return t[RateBusiness], RateBusiness, false
}

// Merge returns a copy of t with overrides applied on top.
func (t RateTable) Merge(overrides map[string]float64) RateTable {
	out := make(RateTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy.
func (t RateTable) Clone() RateTable {
	return t.Merge(nil)
}

// Keys returns the category names in sorted order.
func (t RateTable) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate requires a business rate and finite, non-negative rates.
func (t RateTable) Validate() error {
	if _, ok := t[RateBusiness]; !ok {
		return fmt.Errorf("rate table: missing %q rate", RateBusiness)
	}
	var problems []string
	for _, k := range t.Keys() {
		if strings.TrimSpace(k) == "" {
			problems = append(problems, "empty rate key")
			continue
		}
		if err := ValidateRate(t[k]); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", k, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("rate table: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateRate checks a single per-mile rate.
func ValidateRate(r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("%w: must be a finite number", ErrInvalidRate)
	}
	if r < 0 {
		return fmt.Errorf("%w: must not be negative", ErrInvalidRate)
	}
	return nil
}
