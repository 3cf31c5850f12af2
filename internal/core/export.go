package core

import (
	"errors"
	"strings"
	"time"
)

// Scope selects which records feed a report.
type Scope string

const (
	ScopeBusiness Scope = "business"
	ScopePersonal Scope = "personal"
	ScopeAll      Scope = "all"
)

var ErrInvalidScope = errors.New("invalid scope (business, personal or all)")

// ParseScope defaults an empty value to business.
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case "":
		return ScopeBusiness, nil
	case ScopeBusiness, ScopePersonal, ScopeAll:
		return sc, nil
	default:
		return "", ErrInvalidScope
	}
}

// Includes applies the "bus" substring rule to a record label.
func (s Scope) Includes(label string) bool {
	switch s {
	case ScopeAll:
		return true
	case ScopePersonal:
		return !IsBusiness(label)
	default:
		return IsBusiness(label)
	}
}

// ExportStatus tracks an export job through the worker.
type ExportStatus string

const (
	ExportPending ExportStatus = "pending"
	ExportDone    ExportStatus = "done"
	ExportFailed  ExportStatus = "failed"
)

// ExportJob asks the worker to write a report to the spreadsheet.
type ExportJob struct {
	ID        string       `json:"id"`
	Range     DateRange    `json:"range"`
	RateKey   string       `json:"rateKey,omitempty"`
	Scope     Scope        `json:"scope"`
	Status    ExportStatus `json:"status"`
	Attempts  int          `json:"attempts"`
	Target    string       `json:"target,omitempty"`
	LastError string       `json:"lastError,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
