// Package backend builds the record store, the export publisher and the
// export target selected by configuration.
package backend

import (
	"context"

	"roadreport/internal/amqp"
	"roadreport/internal/sheets"
	"roadreport/internal/store"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the store and what it takes to check and
// release it.
type BackendResult struct {
	Store store.Store
	// Ready reports whether the store can serve requests.
	Ready   func(context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreatePublisher connects to the broker. It returns nil without error
	// when no broker is configured.
	CreatePublisher(config Config) (*amqp.Client, error)
	// CreateReportWriter returns the Google Sheets client when a
	// spreadsheet is configured, and an in-memory sink otherwise.
	CreateReportWriter(ctx context.Context, config Config) (sheets.ReportWriter, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific; empty starts with no records.
	DataDirectory string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export target
	GoogleSpreadsheetID   string
	GoogleReportSheetName string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
