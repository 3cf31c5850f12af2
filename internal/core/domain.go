package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Business     Classification = "business"
	Personal     Classification = "personal"
	Unclassified Classification = "unclassified"
)

type (
	Classification string

	// Trip is a recorded drive. Distance is in miles and is nil when the
	// drive was never measured.
	Trip struct {
		ID             string    `json:"id"`
		Distance       *float64  `json:"distance,omitempty"`
		Purpose        string    `json:"purpose,omitempty"`
		Classification string    `json:"classification,omitempty"`
		Start          time.Time `json:"start"`
		End            time.Time `json:"end"`
		Status         string    `json:"status,omitempty"`
		Notes          string    `json:"notes,omitempty"`
	}

	// Expense is a recorded purchase. Amount is in USD and is nil when
	// unknown.
	Expense struct {
		ID             string    `json:"id"`
		Amount         *float64  `json:"amount,omitempty"`
		Category       string    `json:"category"`
		Classification string    `json:"classification,omitempty"`
		Description    string    `json:"description,omitempty"`
		Date           time.Time `json:"date"`
	}

	// DateRange is the half-open interval [From, To). A zero bound is
	// unbounded on that side.
	DateRange struct {
		From time.Time `json:"from"`
		To   time.Time `json:"to"`
	}
)

var (
	ErrEmptyID          = errors.New("empty id")
	ErrMissingDistance  = errors.New("missing distance")
	ErrInvalidDistance  = errors.New("invalid distance")
	ErrMissingAmount    = errors.New("missing amount")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("empty category")
	ErrMissingDate      = errors.New("missing date")
	ErrInvalidRange     = errors.New("range end must be after range start")
	ErrInvalidLabel     = errors.New("invalid classification")
	ErrDescriptionLimit = errors.New("description too long (max 200 characters)")
	ErrNotesLimit       = errors.New("notes too long (max 2000 characters)")
)

// IsBusiness reports whether a free-text label means business use: a
// case-insensitive match of the substring "bus".
func IsBusiness(label string) bool {
	return strings.Contains(strings.ToLower(label), "bus")
}

// Classify maps a free-text label to a Classification.
func Classify(label string) Classification {
	l := strings.TrimSpace(label)
	if l == "" || strings.EqualFold(l, string(Unclassified)) {
		return Unclassified
	}
	if IsBusiness(l) {
		return Business
	}
	return Personal
}

// ParseClassification accepts only the canonical labels.
func ParseClassification(s string) (Classification, error) {
	switch c := Classification(strings.ToLower(strings.TrimSpace(s))); c {
	case Business, Personal, Unclassified:
		return c, nil
	default:
		return "", ErrInvalidLabel
	}
}

// Float returns a pointer to v. Handy for building trips and expenses.
func Float(v float64) *float64 {
	return &v
}

// Label returns the purpose, falling back to the classification field.
func (t Trip) Label() string {
	if t.Purpose != "" {
		return t.Purpose
	}
	return t.Classification
}

func (t Trip) IsBusiness() bool {
	return IsBusiness(t.Label())
}

// Unclassified reports whether the trip still needs a purpose.
func (t Trip) Unclassified() bool {
	return Classify(t.Purpose) == Unclassified
}

// Miles returns the distance with a missing or non-finite value read as 0.
func (t Trip) Miles() float64 {
	return coalesce(t.Distance)
}

func (t Trip) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if t.Distance == nil {
		return ErrMissingDistance
	}
	if !validNumber(*t.Distance) {
		return ErrInvalidDistance
	}
	if t.Start.IsZero() {
		return ErrMissingDate
	}
	if !t.End.IsZero() && t.End.Before(t.Start) {
		return ErrInvalidRange
	}
	if len(t.Notes) > 2000 {
		return ErrNotesLimit
	}
	return nil
}

func (e Expense) IsBusiness() bool {
	return IsBusiness(e.Classification)
}

func (e Expense) Unclassified() bool {
	return Classify(e.Classification) == Unclassified
}

// Dollars returns the amount with a missing or non-finite value read as 0.
func (e Expense) Dollars() float64 {
	return coalesce(e.Amount)
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if e.Amount == nil {
		return ErrMissingAmount
	}
	if !validNumber(*e.Amount) {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	if len(e.Description) > 200 {
		return ErrDescriptionLimit
	}
	return nil
}

// MonthRange returns the range covering the given calendar month.
func MonthRange(year int, month time.Month, loc *time.Location) DateRange {
	if loc == nil {
		loc = time.UTC
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return DateRange{From: from, To: from.AddDate(0, 1, 0)}
}

// Contains reports whether t falls inside the range. A zero t is never
// inside a bounded range.
func (r DateRange) Contains(t time.Time) bool {
	if r.IsZero() {
		return true
	}
	if t.IsZero() {
		return false
	}
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && !r.To.After(r.From) {
		return ErrInvalidRange
	}
	return nil
}

func coalesce(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

func validNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
