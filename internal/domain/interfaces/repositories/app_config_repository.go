// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// AppConfigRepository defines the interface for accessing configured apps
type AppConfigRepository interface {
	// GetApp retrieves an app configuration by alias and platform
	GetApp(ctx context.Context, alias, platform string) (*entities.AppConfig, error)

	// ListApps returns all configured apps, ordered by alias then platform
	ListApps(ctx context.Context) ([]*entities.AppConfig, error)

	// ListAppsByPlatform returns apps configured for a specific platform
	ListAppsByPlatform(ctx context.Context, platform string) ([]*entities.AppConfig, error)
}
