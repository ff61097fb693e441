package engine

import (
	"context"

	"github.com/craftforge/forge-backend/internal/parse"
	"github.com/craftforge/forge-backend/internal/pipeline/domain"
)

// runUXDesign produces the UX design specification from the refined
// requirements and the system architecture.
func (e *Engine) runUXDesign(ctx context.Context, call generateFunc, p *domain.Project) (*stageRun, error) {
	raw, err := call(ctx, uxDesignPrompt(p))
	if err != nil {
		return nil, err
	}
	design, err := parse.Text("ux_design", raw)
	if err != nil {
		return nil, err
	}

	return &stageRun{
		update:    &ArtifactUpdate{UXDesign: &design},
		artifacts: map[string]any{"ux_design": design},
	}, nil
}
