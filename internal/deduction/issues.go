package deduction

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRecord matches a ValidationError that holds at least one
	// malformed trip or expense.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrUnknownRate matches a ValidationError raised for a rate key
	// missing from the rate table.
	ErrUnknownRate = errors.New("unknown rate key")
)

// IssueKind classifies a diagnostic.
type IssueKind string

const (
	IssueMissingValue  IssueKind = "missing_value"
	IssueInvalidValue  IssueKind = "invalid_value"
	IssueNegativeValue IssueKind = "negative_value"
	IssueUnknownRate   IssueKind = "unknown_rate"
)

// Issue describes one input that was coalesced or substituted.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	Record   string    `json:"record,omitempty"` // "trip" or "expense"
	RecordID string    `json:"recordId,omitempty"`
	Field    string    `json:"field"`
	Detail   string    `json:"detail,omitempty"`
}

func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Kind))
	if i.Record != "" {
		fmt.Fprintf(&b, " %s", i.Record)
		if i.RecordID != "" {
			fmt.Fprintf(&b, " %q", i.RecordID)
		}
	}
	fmt.Fprintf(&b, " field=%s", i.Field)
	if i.Detail != "" {
		fmt.Fprintf(&b, " (%s)", i.Detail)
	}
	return b.String()
}

// ValidationError is returned in strict mode instead of coalescing.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		parts = append(parts, i.String())
	}
	return fmt.Sprintf("validation failed: %d issue(s): %s", len(e.Issues), strings.Join(parts, "; "))
}

// Is lets errors.Is match ErrInvalidRecord and ErrUnknownRate.
func (e *ValidationError) Is(target error) bool {
	for _, i := range e.Issues {
		switch {
		case target == ErrUnknownRate && i.Kind == IssueUnknownRate:
			return true
		case target == ErrInvalidRecord && i.Kind != IssueUnknownRate:
			return true
		}
	}
	return false
}
