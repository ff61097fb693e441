// Package engine implements the pipeline state machine: which stage may run,
// how its artifacts are produced, and what gets invalidated downstream when an
// upstream artifact is overwritten.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/craftforge/forge-backend/internal/logging"
	"github.com/craftforge/forge-backend/internal/pipeline/domain"
	"github.com/craftforge/forge-backend/internal/provider"
)

// ArtifactStore persists projects and their artifacts. Write applies a
// partial update atomically with the stage value.
type ArtifactStore interface {
	Read(ctx context.Context, projectID int64) (*domain.Project, error)
	Write(ctx context.Context, projectID int64, update *ArtifactUpdate) (*domain.Project, error)
}

// ProviderConfigStore resolves provider configuration by registry name.
// Absence is reported as domain.ErrProviderNotFound.
type ProviderConfigStore interface {
	Lookup(ctx context.Context, name string) (*domain.ProviderConfig, error)
}

// FileSink receives generated project files. Failures are per-file and
// handled by the fan-out, not the sink.
type FileSink interface {
	Put(relativePath string, content []byte) error
	EnsureDir(relativePath string) error
}

// SinkFactory opens a sink for one project's generated output and returns the
// reference (path or identifier) that will be persisted on the project.
type SinkFactory interface {
	ForProject(projectID int64, projectName string) (FileSink, string, error)
}

// ArtifactUpdate is a partial project update. Nil fields are left untouched;
// non-nil fields are written. Clearing a slot is writing its zero value.
type ArtifactUpdate struct {
	Stage               *domain.Stage
	RefinedRequirements *string
	UserStories         *[]domain.StoryRecord
	SystemArchitecture  *string
	UXDesign            *string
	TechStack           **domain.TechStackDecision
	GeneratedProjectRef *string
}

// Options tune engine behavior.
type Options struct {
	// ValidationFailClosed rejects a requirements analysis when the
	// sufficiency check itself fails. The default (false) keeps the
	// fail-open behavior: a broken validation call lets the analysis
	// proceed rather than blocking legitimate input.
	ValidationFailClosed bool
}

// Engine drives stage transitions for projects.
type Engine struct {
	store    ArtifactStore
	configs  ProviderConfigStore
	registry *provider.Registry
	sinks    SinkFactory
	opts     Options
}

// New creates a pipeline engine.
func New(store ArtifactStore, configs ProviderConfigStore, registry *provider.Registry, sinks SinkFactory, opts Options) *Engine {
	return &Engine{
		store:    store,
		configs:  configs,
		registry: registry,
		sinks:    sinks,
		opts:     opts,
	}
}

// stageRun is the outcome of one handler: the artifact slots it produced plus
// any tolerated sub-task failures.
type stageRun struct {
	update       *ArtifactUpdate
	artifacts    map[string]any
	taskFailures []domain.TaskFailure
}

// AdvanceStage runs the transition that completes target for the given
// project. On handler failure the project's stage and artifacts are left
// unchanged and the result carries a taxonomy kind. The returned error is
// non-nil only for storage failures.
func (e *Engine) AdvanceStage(ctx context.Context, projectID int64, target domain.Stage) (*domain.StageResult, error) {
	logger := logging.New(ctx)

	p, err := e.store.Read(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("read project %d: %w", projectID, err)
	}

	if err := e.checkPreconditions(p, target); err != nil {
		logger.Warnf("advance_stage", "project=%d target=%s precondition failed: %v", projectID, target, err)
		return domain.FailureOf(err), nil
	}

	run, err := e.runHandler(ctx, p, target)
	if err != nil {
		logger.Error("advance_stage", err)
		return domain.FailureOf(err), nil
	}

	// Commit the new artifacts, the stage value and the downstream clears in
	// one write.
	stage := target
	run.update.Stage = &stage
	clearDownstream(run.update, target)

	if _, err := e.store.Write(ctx, projectID, run.update); err != nil {
		return nil, fmt.Errorf("commit stage %s for project %d: %w", target, projectID, err)
	}

	logger.Infof("advance_stage", "project=%d stage=%s artifacts=%d failed_tasks=%d",
		projectID, target, len(run.artifacts), len(run.taskFailures))

	return &domain.StageResult{
		Success:      true,
		NewStage:     target,
		Artifacts:    run.artifacts,
		TaskFailures: run.taskFailures,
	}, nil
}

// checkPreconditions verifies the project may run the transition completing
// target. Re-running an already-completed stage is allowed; running ahead of
// the pipeline is not, and neither is running with a missing upstream
// artifact.
func (e *Engine) checkPreconditions(p *domain.Project, target domain.Stage) error {
	if !target.Valid() || target == domain.StageDraft {
		return &domain.PreconditionError{Stage: target, Missing: []string{"valid target stage"}}
	}
	if p.Stage.Before(target.Prev()) {
		return &domain.PreconditionError{
			Stage:   target,
			Missing: []string{fmt.Sprintf("stage %s (currently %s)", target.Prev(), p.Stage)},
		}
	}

	var missing []string
	switch target {
	case domain.StageRequirementsComplete:
		if p.Requirements == "" {
			missing = append(missing, "requirements")
		}
	case domain.StageArchitectureComplete:
		if p.RefinedRequirements == "" {
			missing = append(missing, "refined_requirements")
		}
	case domain.StageUXDesignComplete:
		if p.SystemArchitecture == "" {
			missing = append(missing, "system_architecture")
		}
	case domain.StageProjectGenerated:
		if p.RefinedRequirements == "" {
			missing = append(missing, "refined_requirements")
		}
		if p.SystemArchitecture == "" {
			missing = append(missing, "system_architecture")
		}
		if p.UXDesign == "" {
			missing = append(missing, "ux_design")
		}
	}
	if len(missing) > 0 {
		return &domain.PreconditionError{Stage: target, Missing: missing}
	}
	return nil
}

func (e *Engine) runHandler(ctx context.Context, p *domain.Project, target domain.Stage) (*stageRun, error) {
	call, err := e.generator(ctx, p.Provider)
	if err != nil {
		return nil, err
	}

	switch target {
	case domain.StageRequirementsComplete:
		return e.runRequirements(ctx, call, p)
	case domain.StageArchitectureComplete:
		return e.runArchitecture(ctx, call, p)
	case domain.StageUXDesignComplete:
		return e.runUXDesign(ctx, call, p)
	case domain.StageProjectGenerated:
		return e.runFullStackGeneration(ctx, call, p)
	default:
		return nil, &domain.PreconditionError{Stage: target, Missing: []string{"valid target stage"}}
	}
}

// generateFunc is a generator call bound to one project's provider selection.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// generator resolves the project's provider selection into a bound call.
// Configuration problems fail here, before any network traffic.
func (e *Engine) generator(ctx context.Context, name string) (generateFunc, error) {
	cfg, err := e.configs.Lookup(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrProviderNotFound) {
			return nil, &domain.ProviderUnavailableError{Name: name, Reason: "not configured"}
		}
		return nil, fmt.Errorf("lookup provider %q: %w", name, err)
	}
	if !cfg.IsActive {
		return nil, &domain.ProviderUnavailableError{Name: name, Reason: "inactive"}
	}

	gen, err := e.registry.Create(name, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, prompt string) (string, error) {
		return gen.Generate(ctx, prompt, cfg.ModelName, cfg.MaxTokens)
	}, nil
}

// clearDownstream clears every artifact slot owned by a stage after target.
// Clearing is derived from the stage order itself rather than a per-row list,
// so a re-run of any stage invalidates everything reachable from it. That
// deliberately includes dropping tech_stack and generated_project_ref on a
// ux_design re-run: a redesigned UX can change the stack choice, so the
// already-generated output must not survive it.
func clearDownstream(u *ArtifactUpdate, target domain.Stage) {
	empty := ""
	if target.Before(domain.StageRequirementsComplete) {
		var noStories []domain.StoryRecord
		u.RefinedRequirements = &empty
		u.UserStories = &noStories
	}
	if target.Before(domain.StageArchitectureComplete) {
		u.SystemArchitecture = &empty
	}
	if target.Before(domain.StageUXDesignComplete) {
		u.UXDesign = &empty
	}
	if target.Before(domain.StageProjectGenerated) {
		var noStack *domain.TechStackDecision
		u.TechStack = &noStack
		u.GeneratedProjectRef = &empty
	}
}
