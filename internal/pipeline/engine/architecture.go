package engine

import (
	"context"

	"github.com/craftforge/forge-backend/internal/parse"
	"github.com/craftforge/forge-backend/internal/pipeline/domain"
)

// runArchitecture produces the system architecture artifact from the refined
// requirements.
func (e *Engine) runArchitecture(ctx context.Context, call generateFunc, p *domain.Project) (*stageRun, error) {
	raw, err := call(ctx, architecturePrompt(p))
	if err != nil {
		return nil, err
	}
	architecture, err := parse.Text("system_architecture", raw)
	if err != nil {
		return nil, err
	}

	return &stageRun{
		update:    &ArtifactUpdate{SystemArchitecture: &architecture},
		artifacts: map[string]any{"system_architecture": architecture},
	}, nil
}
