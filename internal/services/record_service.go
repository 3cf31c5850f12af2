package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"roadreport/internal/core"
	"roadreport/internal/deduction"
	"roadreport/internal/store"
)

// RecordStore is the part of the store RecordService writes to.
type RecordStore interface {
	store.TripReader
	store.TripWriter
	store.ExpenseReader
	store.ExpenseWriter
	store.RateStore
}

// RecordService creates, classifies and deletes trips and expenses and
// manages rate overrides.
type RecordService struct {
	store RecordStore
}

func NewRecordService(s RecordStore) *RecordService {
	return &RecordService{store: s}
}

// CreateTrip assigns an ID when missing, validates and stores the trip.
func (s *RecordService) CreateTrip(ctx context.Context, t core.Trip) (core.Trip, error) {
	if strings.TrimSpace(t.ID) == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return core.Trip{}, err
	}
	if err := s.store.SaveTrip(ctx, t); err != nil {
		return core.Trip{}, fmt.Errorf("save trip: %w", err)
	}
	slog.InfoContext(ctx, "Trip recorded", "id", t.ID, "miles", t.Miles(), "purpose", t.Purpose)
	return t, nil
}

// ClassifyTrip sets the trip purpose to the canonical label.
func (s *RecordService) ClassifyTrip(ctx context.Context, id, label string) (core.Trip, error) {
	c, err := core.ParseClassification(label)
	if err != nil {
		return core.Trip{}, err
	}
	t, err := s.store.GetTrip(ctx, id)
	if err != nil {
		return core.Trip{}, err
	}
	t.Purpose = displayLabel(c)
	if err := s.store.SaveTrip(ctx, t); err != nil {
		return core.Trip{}, fmt.Errorf("save trip: %w", err)
	}
	slog.InfoContext(ctx, "Trip classified", "id", id, "purpose", t.Purpose)
	return t, nil
}

func (s *RecordService) DeleteTrip(ctx context.Context, id string) error {
	return s.store.DeleteTrip(ctx, id)
}

// CreateExpense assigns an ID when missing, validates and stores the
// expense.
func (s *RecordService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if strings.TrimSpace(e.ID) == "" {
		e.ID = uuid.NewString()
	}
	e.Category = strings.TrimSpace(e.Category)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.store.SaveExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense recorded", "id", e.ID, "amount", e.Dollars(), "category", e.Category)
	return e, nil
}

// ClassifyExpense sets the expense classification to the canonical label.
func (s *RecordService) ClassifyExpense(ctx context.Context, id, label string) (core.Expense, error) {
	c, err := core.ParseClassification(label)
	if err != nil {
		return core.Expense{}, err
	}
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	e.Classification = displayLabel(c)
	if err := s.store.SaveExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense classified", "id", id, "classification", e.Classification)
	return e, nil
}

func (s *RecordService) DeleteExpense(ctx context.Context, id string) error {
	return s.store.DeleteExpense(ctx, id)
}

// SetRate stores a per-mile rate override for key.
func (s *RecordService) SetRate(ctx context.Context, key string, rate float64) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: rate key is required", deduction.ErrInvalidRate)
	}
	if err := deduction.ValidateRate(rate); err != nil {
		return err
	}
	return s.store.SetRateOverride(ctx, key, rate)
}

// ClearRate removes an override so the configured rate applies again.
func (s *RecordService) ClearRate(ctx context.Context, key string) error {
	return s.store.DeleteRateOverride(ctx, strings.TrimSpace(key))
}

func displayLabel(c core.Classification) string {
	switch c {
	case core.Business:
		return "Business"
	case core.Personal:
		return "Personal"
	default:
		return "Unclassified"
	}
}
