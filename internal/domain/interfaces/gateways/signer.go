package gateways

import (
	"context"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// Signer finalizes records: it sets PubKey, ID and Sig in place
type Signer interface {
	// PublicKey returns the hex public key records will be authored by
	PublicKey() string

	Sign(ctx context.Context, record *entities.PublicationRecord) error
}
