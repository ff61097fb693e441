package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/craftforge/forge-backend/internal/logging"
	"github.com/craftforge/forge-backend/internal/parse"
	"github.com/craftforge/forge-backend/internal/pipeline/domain"
)

// fallbackFolders is the minimal structure used when the folder-structure
// suggestion cannot be parsed. The fallback lives here, at the call site,
// because only this handler may decide that a bad auxiliary response is
// tolerable; the parser itself never substitutes data.
var fallbackFolders = []string{"src", "config", "docs"}

// runFullStackGeneration decides the tech stack and fans out the file
// generation tasks. The tech-stack decision is mandatory; individual file
// failures degrade the result without failing the transition.
func (e *Engine) runFullStackGeneration(ctx context.Context, call generateFunc, p *domain.Project) (*stageRun, error) {
	logger := logging.New(ctx)

	raw, err := call(ctx, techStackPrompt(p))
	if err != nil {
		return nil, err
	}
	var stack domain.TechStackDecision
	if err := parse.Object("tech_stack", raw, &stack); err != nil {
		return nil, err
	}

	sink, ref, err := e.sinks.ForProject(p.ID, p.Name)
	if err != nil {
		return nil, fmt.Errorf("open project sink: %w", err)
	}

	e.createFolders(ctx, call, sink, p, &stack)

	if err := sink.Put("tech-stack.md", techStackSummary(p.Name, &stack)); err != nil {
		logger.Warnf("generate_project", "write tech-stack.md: %v", err)
	}

	tasks := buildTasks(ctx, p, &stack, call)
	created, failures := runTasks(ctx, sink, tasks)

	logger.Infof("generate_project", "project=%d files=%d failed=%d stack=%s/%s",
		p.ID, len(created), len(failures), stack.Backend.Language, stack.Frontend.Framework)

	stackPtr := &stack
	return &stageRun{
		update: &ArtifactUpdate{
			TechStack:           &stackPtr,
			GeneratedProjectRef: &ref,
		},
		artifacts: map[string]any{
			"tech_stack":            stack,
			"generated_project_ref": ref,
			"files_created":         created,
		},
		taskFailures: failures,
	}, nil
}

// createFolders asks for a folder layout and falls back to the minimal
// structure when the suggestion is unusable. This generation is auxiliary:
// its failure never aborts the stage.
func (e *Engine) createFolders(ctx context.Context, call generateFunc, sink FileSink, p *domain.Project, stack *domain.TechStackDecision) {
	logger := logging.New(ctx)

	folders := fallbackFolders
	raw, err := call(ctx, folderStructurePrompt(p, stack))
	if err == nil {
		var suggested []string
		if perr := parse.Array("folder_structure", raw, &suggested); perr == nil && len(suggested) > 0 {
			folders = suggested
		} else {
			logger.Warnf("generate_project", "folder suggestion unusable, using fallback: %v", perr)
		}
	} else {
		logger.Warnf("generate_project", "folder suggestion call failed, using fallback: %v", err)
	}

	for _, folder := range folders {
		if err := sink.EnsureDir(folder); err != nil {
			logger.Warnf("generate_project", "create folder %s: %v", folder, err)
		}
	}
}

func techStackSummary(name string, stack *domain.TechStackDecision) []byte {
	stackJSON, _ := json.MarshalIndent(stack, "", "  ")
	return fmt.Appendf(nil, `# Tech Stack for %s

## Decision

%s

## Frontend
- Framework: %s
- Language: %s
- Styling: %s

## Backend
- Language: %s
- Framework: %s

## Database
- Type: %s

## Deployment
- Platform: %s
- Containerization: %s
`,
		name, stackJSON,
		stack.Frontend.Framework, stack.Frontend.Language, stack.Frontend.Styling,
		stack.Backend.Language, stack.Backend.Framework,
		stack.Database.Type,
		stack.Deployment.Platform, stack.Deployment.Containerization)
}
