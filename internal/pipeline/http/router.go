package http

import (
	"github.com/gin-gonic/gin"

	"github.com/craftforge/forge-backend/internal/pipeline/domain"
)

// Register attaches project and pipeline routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	projects := rg.Group("/projects")
	projects.POST("", h.create)
	projects.GET("", h.list)
	projects.GET("/:id", h.get)
	projects.PATCH("/:id", h.update)
	projects.DELETE("/:id", h.delete)
	projects.POST("/:id/archive", h.setArchived(true))
	projects.POST("/:id/unarchive", h.setArchived(false))

	projects.POST("/:id/analyze-requirements", h.advance(domain.StageRequirementsComplete))
	projects.POST("/:id/generate-system-architecture", h.advance(domain.StageArchitectureComplete))
	projects.POST("/:id/generate-ux-design", h.advance(domain.StageUXDesignComplete))
	projects.POST("/:id/generate-project", h.advance(domain.StageProjectGenerated))

	rg.GET("/ai-providers", h.listProviders)
}
