package entities

import "time"

// AppStatus is the terminal state of one app's pipeline run
type AppStatus string

// App pipeline statuses
const (
	StatusPublished AppStatus = "published"
	StatusPartial   AppStatus = "partial"
	StatusDuplicate AppStatus = "duplicate"
	StatusSkipped   AppStatus = "skipped"
	StatusFailed    AppStatus = "failed"
)

// AppResult contains the result of processing one app
type AppResult struct {
	Alias      string
	Status     AppStatus
	Reason     string
	Artifact   *CanonicalArtifact
	Records    *RecordSet
	Outcomes   []PublishOutcome
	Duplicates []*PublicationRecord
	Duration   time.Duration
	Error      error
}

// Failed reports whether any record was rejected or the pipeline failed
func (r *AppResult) Failed() bool {
	if r.Status == StatusFailed {
		return true
	}
	for _, o := range r.Outcomes {
		if !o.Accepted {
			return true
		}
	}
	return false
}
