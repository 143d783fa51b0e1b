package gateways

import (
	"context"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// Introspector obtains facts about a binary package.
// How the facts are obtained (external tools, sidecar files) is up to the implementation.
type Introspector interface {
	Introspect(ctx context.Context, path string) (*entities.FileMetadataFacts, error)

	// ExtractEntry copies one archive entry (e.g. an icon) into destDir and returns its path
	ExtractEntry(ctx context.Context, path, entry, destDir string) (string, error)
}
