package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/craftforge/forge-backend/internal/logging"
	"github.com/craftforge/forge-backend/internal/parse"
	"github.com/craftforge/forge-backend/internal/pipeline/domain"
)

// Validation is the outcome of the requirements sufficiency check. It is a
// value, not an error: when the input is insufficient the caller must act on
// the guidance questions, not merely observe a failure.
type Validation struct {
	Sufficient bool
	Guidance   string
}

// runRequirements refines the raw requirements and produces the user story
// sequence. A new run replaces the prior stories, it never merges.
func (e *Engine) runRequirements(ctx context.Context, call generateFunc, p *domain.Project) (*stageRun, error) {
	v, err := e.validateRequirements(ctx, call, p.Requirements)
	if err != nil {
		return nil, err
	}
	if !v.Sufficient {
		return nil, &domain.PreconditionError{
			Stage:   domain.StageRequirementsComplete,
			Missing: []string{"sufficient requirements: " + v.Guidance},
		}
	}

	projectContext, err := e.analyzeContext(ctx, call, p.Requirements)
	if err != nil {
		return nil, err
	}

	raw, err := call(ctx, refinedRequirementsPrompt(p.Name, p.Requirements, projectContext))
	if err != nil {
		return nil, err
	}
	refined, err := parse.Text("refined_requirements", raw)
	if err != nil {
		return nil, err
	}

	raw, err = call(ctx, userStoriesPrompt(p.Name, p.Requirements, projectContext))
	if err != nil {
		return nil, err
	}
	var stories []domain.StoryRecord
	if err := parse.Array("user_stories", raw, &stories); err != nil {
		return nil, err
	}
	normalizeStories(stories)

	return &stageRun{
		update: &ArtifactUpdate{
			RefinedRequirements: &refined,
			UserStories:         &stories,
		},
		artifacts: map[string]any{
			"refined_requirements": refined,
			"user_stories":         stories,
		},
	}, nil
}

// validateRequirements asks the provider whether the input is analyzable.
// When the validation call itself fails the policy decides: fail-open keeps
// the original behavior of letting the analysis proceed; fail-closed rejects.
func (e *Engine) validateRequirements(ctx context.Context, call generateFunc, requirements string) (Validation, error) {
	logger := logging.New(ctx)

	if strings.TrimSpace(requirements) == "" {
		return Validation{Sufficient: false, Guidance: "Please provide requirements to analyze."}, nil
	}

	raw, err := call(ctx, validationPrompt(requirements))
	if err == nil {
		var out struct {
			Sufficient bool   `json:"sufficient"`
			Reason     string `json:"reason"`
			Guidance   string `json:"guidance"`
		}
		if perr := parse.Object("validate_requirements", raw, &out); perr == nil {
			return Validation{Sufficient: out.Sufficient, Guidance: out.Guidance}, nil
		}
		err = fmt.Errorf("validation response was not valid JSON")
	}

	if e.opts.ValidationFailClosed {
		return Validation{}, fmt.Errorf("requirements validation failed: %w", err)
	}
	logger.Warnf("validate_requirements", "validation call failed, proceeding fail-open: %v", err)
	return Validation{Sufficient: true}, nil
}

func (e *Engine) analyzeContext(ctx context.Context, call generateFunc, requirements string) (map[string]any, error) {
	raw, err := call(ctx, contextPrompt(requirements))
	if err != nil {
		return nil, err
	}
	var projectContext map[string]any
	if err := parse.Object("project_context", raw, &projectContext); err != nil {
		return nil, err
	}
	return projectContext, nil
}

// normalizeStories fills defaults the model commonly omits so downstream
// consumers see consistent records.
func normalizeStories(stories []domain.StoryRecord) {
	for i := range stories {
		if stories[i].ID == "" {
			stories[i].ID = fmt.Sprintf("US-%03d", i+1)
		}
		switch stories[i].Priority {
		case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		default:
			stories[i].Priority = domain.PriorityMedium
		}
		if stories[i].StoryPoints < 1 {
			stories[i].StoryPoints = 1
		}
	}
}
