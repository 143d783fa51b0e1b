package services

import (
	"context"

	"github.com/zapstore/releastr/internal/domain/entities"
	"github.com/zapstore/releastr/internal/domain/interfaces/gateways"
)

// ReasonNotFinalized is reported for records that were never signed
const ReasonNotFinalized = "record is not finalized"

// PublishRecords sends FileMetadata, Release, then App. Each record is attempted
// regardless of the others' outcome; nil records are skipped.
func PublishRecords(ctx context.Context, pub gateways.RecordPublisher, set *entities.RecordSet) []entities.PublishOutcome {
	if set == nil {
		return nil
	}

	var outcomes []entities.PublishOutcome
	for _, rec := range []*entities.PublicationRecord{set.FileMetadata, set.Release, set.App} {
		if rec == nil {
			continue
		}
		outcome := entities.PublishOutcome{Kind: rec.Kind, RecordID: rec.ID}
		switch {
		case !rec.IsFinal():
			outcome.Reason = ReasonNotFinalized
		case ctx.Err() != nil:
			outcome.Reason = ctx.Err().Error()
		default:
			if err := pub.Publish(ctx, rec); err != nil {
				outcome.Reason = err.Error()
			} else {
				outcome.Accepted = true
			}
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
