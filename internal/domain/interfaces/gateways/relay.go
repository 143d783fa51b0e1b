package gateways

import (
	"context"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// RecordQuerier looks up prior records on the shared network
type RecordQuerier interface {
	Query(ctx context.Context, filter entities.RecordFilter) ([]*entities.PublicationRecord, error)
}

// RecordPublisher sends one finalized record to the shared network.
// A non-nil error means the record was not accepted.
type RecordPublisher interface {
	Publish(ctx context.Context, record *entities.PublicationRecord) error
}

// RelayGateway is the full relay collaborator
type RelayGateway interface {
	RecordQuerier
	RecordPublisher
}
