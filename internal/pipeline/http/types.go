package http

import "github.com/craftforge/forge-backend/internal/pipeline/service"

// Handler bundles the dependencies for pipeline HTTP endpoints.
type Handler struct {
	projects *service.ProjectService
	pipeline *service.PipelineService
}

func New(projects *service.ProjectService, pipeline *service.PipelineService) *Handler {
	return &Handler{projects: projects, pipeline: pipeline}
}
