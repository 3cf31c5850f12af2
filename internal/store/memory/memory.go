// Package memory is an in-process store used for development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"roadreport/internal/core"
	"roadreport/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	trips    map[string]core.Trip
	expenses map[string]core.Expense
	rates    map[string]float64
	jobs     map[string]core.ExportJob
	now      func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		trips:    make(map[string]core.Trip),
		expenses: make(map[string]core.Expense),
		rates:    make(map[string]float64),
		jobs:     make(map[string]core.ExportJob),
		now:      time.Now,
	}
}

// NewFromFiles seeds the store from trips.json and expenses.json in base.
// Missing files leave the store empty; malformed files are an error.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	var trips []core.Trip
	if err := readJSON(filepath.Join(base, "trips.json"), &trips); err != nil {
		return nil, err
	}
	var expenses []core.Expense
	if err := readJSON(filepath.Join(base, "expenses.json"), &expenses); err != nil {
		return nil, err
	}
	for _, t := range trips {
		if t.ID == "" {
			continue
		}
		s.trips[t.ID] = t
	}
	for _, e := range expenses {
		if e.ID == "" {
			continue
		}
		s.expenses[e.ID] = e
	}
	return s, nil
}

func (s *Store) ListTrips(_ context.Context, r core.DateRange) ([]core.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Trip, 0, len(s.trips))
	for _, t := range s.trips {
		if r.Contains(t.Start) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (s *Store) GetTrip(_ context.Context, id string) (core.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trips[id]
	if !ok {
		return core.Trip{}, fmt.Errorf("trip %s: %w", id, store.ErrNotFound)
	}
	return t, nil
}

func (s *Store) SaveTrip(_ context.Context, t core.Trip) error {
	if t.ID == "" {
		return core.ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[t.ID] = t
	return nil
}

func (s *Store) DeleteTrip(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[id]; !ok {
		return fmt.Errorf("trip %s: %w", id, store.ErrNotFound)
	}
	delete(s.trips, id)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, r core.DateRange) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if r.Contains(e.Date) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, store.ErrNotFound)
	}
	return e, nil
}

func (s *Store) SaveExpense(_ context.Context, e core.Expense) error {
	if e.ID == "" {
		return core.ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return fmt.Errorf("expense %s: %w", id, store.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) RateOverrides(_ context.Context) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.rates))
	for k, v := range s.rates {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SetRateOverride(_ context.Context, key string, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[key] = rate
	return nil
}

// DeleteRateOverride is a no-op for keys without an override.
func (s *Store) DeleteRateOverride(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rates, key)
	return nil
}

func (s *Store) CreateExportJob(_ context.Context, job core.ExportJob) error {
	if job.ID == "" {
		return core.ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("export job %s already exists", job.ID)
	}
	now := s.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = core.ExportPending
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *Store) GetExportJob(_ context.Context, id string) (core.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return core.ExportJob{}, fmt.Errorf("export job %s: %w", id, store.ErrNotFound)
	}
	return j, nil
}

func (s *Store) PendingExportJobs(_ context.Context, limit int) ([]core.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.ExportJob
	for _, j := range s.jobs {
		if j.Status == core.ExportPending {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkExportDone(_ context.Context, id, target string) error {
	return s.updateJob(id, func(j *core.ExportJob) {
		j.Status = core.ExportDone
		j.Target = target
		j.LastError = ""
		j.Attempts++
	})
}

func (s *Store) MarkExportFailed(_ context.Context, id, reason string) error {
	return s.updateJob(id, func(j *core.ExportJob) {
		j.Status = core.ExportFailed
		j.LastError = reason
		j.Attempts++
	})
}

func (s *Store) RecordExportAttempt(_ context.Context, id, reason string) error {
	return s.updateJob(id, func(j *core.ExportJob) {
		j.LastError = reason
		j.Attempts++
	})
}

func (s *Store) Close() error { return nil }

func (s *Store) updateJob(id string, fn func(*core.ExportJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("export job %s: %w", id, store.ErrNotFound)
	}
	fn(&j)
	j.UpdatedAt = s.now()
	s.jobs[id] = j
	return nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
