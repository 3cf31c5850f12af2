package memory

import (
	"context"
	"fmt"
	"sync"

	"roadreport/internal/core"
	"roadreport/internal/deduction"
)

// Written is a report captured by the Sink.
type Written struct {
	Ref    string
	Job    core.ExportJob
	Report deduction.TaxReport
}

// Sink keeps written reports in memory. It stands in for the spreadsheet
// when no Google credentials are configured.
type Sink struct {
	mu      sync.Mutex
	reports []Written
	err     error
}

func New() *Sink {
	return &Sink{}
}

// WriteReport stores the report and returns a synthetic reference.
func (s *Sink) WriteReport(_ context.Context, job core.ExportJob, report deduction.TaxReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	ref := fmt.Sprintf("mem:report:%d", len(s.reports)+1)
	s.reports = append(s.reports, Written{Ref: ref, Job: job, Report: report})
	return ref, nil
}

// FailWith makes every following write return err. Pass nil to recover.
func (s *Sink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Reports returns a copy of everything written so far.
func (s *Sink) Reports() []Written {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Written(nil), s.reports...)
}
