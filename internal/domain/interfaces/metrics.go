package interfaces

import (
	"time"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// Metrics records pipeline outcomes
type Metrics interface {
	ObserveApp(status entities.AppStatus, duration time.Duration)
	ObservePublish(kind entities.Kind, accepted bool)
}

// NoOpMetrics implements Metrics without emitting anything
type NoOpMetrics struct{}

// ObserveApp does nothing
func (NoOpMetrics) ObserveApp(entities.AppStatus, time.Duration) {}

// ObservePublish does nothing
func (NoOpMetrics) ObservePublish(entities.Kind, bool) {}
