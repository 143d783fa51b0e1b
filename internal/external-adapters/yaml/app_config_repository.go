package yaml

import (
	"context"
	"fmt"
	"os"

	"github.com/zapstore/releastr/internal/domain/entities"
	"github.com/zapstore/releastr/internal/domain/interfaces"
)

// AppConfigRepository implements repositories.AppConfigRepository over one app file
type AppConfigRepository struct {
	filePath string
	parser   *AppFileParser
	logger   interfaces.Logger
}

// NewAppConfigRepository creates a repository reading filePath on every call
func NewAppConfigRepository(filePath string, logger interfaces.Logger) *AppConfigRepository {
	return &AppConfigRepository{
		filePath: filePath,
		parser:   NewAppFileParser(),
		logger:   interfaces.OrNoOp(logger),
	}
}

// GetApp retrieves an app configuration by alias and platform
func (r *AppConfigRepository) GetApp(ctx context.Context, alias, platform string) (*entities.AppConfig, error) {
	apps, err := r.ListApps(ctx)
	if err != nil {
		return nil, err
	}
	for _, app := range apps {
		if app.Alias == alias && app.Platform == platform {
			return app, nil
		}
	}
	return nil, fmt.Errorf("app not found: %s (%s)", alias, platform)
}

// ListApps returns all configured apps. A missing app file is an empty list.
func (r *AppConfigRepository) ListApps(_ context.Context) ([]*entities.AppConfig, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		r.logger.Warn("App file not found", interfaces.F("path", r.filePath))
		return []*entities.AppConfig{}, nil
	}
	return r.parser.ParseFile(r.filePath)
}

// ListAppsByPlatform returns apps configured for a specific platform
func (r *AppConfigRepository) ListAppsByPlatform(ctx context.Context, platform string) ([]*entities.AppConfig, error) {
	apps, err := r.ListApps(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*entities.AppConfig, 0, len(apps))
	for _, app := range apps {
		if app.Platform == platform {
			filtered = append(filtered, app)
		}
	}
	return filtered, nil
}
