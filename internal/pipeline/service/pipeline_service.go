package service

import (
	"context"
	"fmt"

	"github.com/craftforge/forge-backend/internal/locks"
	"github.com/craftforge/forge-backend/internal/logging"
	"github.com/craftforge/forge-backend/internal/pipeline/domain"
)

// StageRunner runs one stage transition. Implemented by engine.Engine.
type StageRunner interface {
	AdvanceStage(ctx context.Context, projectID int64, target domain.Stage) (*domain.StageResult, error)
}

// Locker serializes transitions per project.
type Locker interface {
	Acquire(ctx context.Context, projectID int64) (*locks.Lock, error)
}

// ProviderLister returns the active provider configurations.
type ProviderLister interface {
	ListActive(ctx context.Context) ([]domain.ProviderConfig, error)
}

// PipelineService wraps the engine with the per-project advance lock so a
// project never runs two transitions at once, even across instances.
type PipelineService struct {
	engine    StageRunner
	locker    Locker
	providers ProviderLister
}

// NewPipelineService creates a pipeline service.
func NewPipelineService(engine StageRunner, locker Locker, providers ProviderLister) *PipelineService {
	return &PipelineService{engine: engine, locker: locker, providers: providers}
}

// Advance runs the transition completing target for projectID. A concurrent
// transition on the same project returns locks.ErrAlreadyLocked.
func (s *PipelineService) Advance(ctx context.Context, projectID int64, target domain.Stage) (*domain.StageResult, error) {
	lock, err := s.locker.Acquire(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			logging.New(ctx).Warnf("advance", "project=%d release lock: %v", projectID, err)
		}
	}()

	res, err := s.engine.AdvanceStage(ctx, projectID, target)
	if err != nil {
		return nil, fmt.Errorf("advance project %d to %s: %w", projectID, target, err)
	}
	return res, nil
}

// ListProviders returns the active providers for the selection endpoint.
func (s *PipelineService) ListProviders(ctx context.Context) ([]domain.ProviderConfig, error) {
	return s.providers.ListActive(ctx)
}
