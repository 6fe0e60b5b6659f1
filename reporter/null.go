package reporter

import "context"

// NullReporter is a no-op Reporter for components that disable
// telemetry reporting entirely (e.g. during a single-job CLI run).
type NullReporter struct{}

// Run returns immediately once ctx is canceled.
func (NullReporter) Run(ctx context.Context) {
	<-ctx.Done()
}

// Report is a no-op.
func (NullReporter) Report(bool) error { return nil }
