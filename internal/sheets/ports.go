package sheets

import (
	"context"

	"roadreport/internal/core"
	"roadreport/internal/deduction"
)

// Ports for outbound adapters.
type (
	// ReportWriter stores a generated report somewhere a person can read
	// it and returns a reference to where it was written.
	ReportWriter interface {
		WriteReport(ctx context.Context, job core.ExportJob, report deduction.TaxReport) (ref string, err error)
	}
)
