package model

// ItemResult is the finalized result of one work item.
type ItemResult struct {
	Item     WorkItem
	Outcome  FetchOutcome
	Attempts int
}

// OK reports whether the item succeeded.
func (r ItemResult) OK() bool {
	return r.Outcome.OK()
}

// JobReport summarises a finished run.
//
// Only failures are kept in full; successes are counted.
type JobReport struct {
	// RunID identifies the run in logs.
	RunID string

	Kind       TargetKind
	Title      string
	Total      int
	Successful int
	Failed     []ItemResult

	// Cancelled is set when the run was interrupted before every item started.
	Cancelled bool
}

// NewJobReport builds a report from the results of one dispatch.
func NewJobReport(target ResolvedTarget, results []ItemResult, cancelled bool) *JobReport {
	report := &JobReport{
		Kind:      target.Kind,
		Title:     target.Title,
		Total:     len(results),
		Cancelled: cancelled,
	}
	for _, r := range results {
		if r.OK() {
			report.Successful++
			continue
		}
		report.Failed = append(report.Failed, r)
	}
	return report
}

// AllSucceeded reports whether every item succeeded.
func (r *JobReport) AllSucceeded() bool {
	return len(r.Failed) == 0 && !r.Cancelled
}
