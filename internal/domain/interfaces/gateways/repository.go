// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// RepositoryGateway defines operations against a source-code hosting API
type RepositoryGateway interface {
	// FetchRepoFacts retrieves project metadata (name, license, topics, counts)
	FetchRepoFacts(ctx context.Context, ref entities.RepoRef) (*entities.RepoFacts, error)

	// FetchLatestRelease retrieves the latest release with its assets
	FetchLatestRelease(ctx context.Context, ref entities.RepoRef) (*entities.RepoRelease, error)
}

// StoreGateway scrapes an app-store listing
type StoreGateway interface {
	// FetchStoreFacts returns empty facts (not an error) when the listing does not exist
	FetchStoreFacts(ctx context.Context, identifier string) (*entities.StoreFacts, error)
}

// Downloader fetches a remote file into a directory
type Downloader interface {
	Download(ctx context.Context, url, destDir string) (string, error)
}

// Addresser content-addresses local files
type Addresser interface {
	Address(ctx context.Context, path string) (*entities.CanonicalArtifact, error)
}
