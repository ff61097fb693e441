package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/craftforge/forge-backend/internal/pipeline/domain"
	"github.com/craftforge/forge-backend/internal/pipeline/repository"
	"github.com/craftforge/forge-backend/internal/pipeline/service"
)

func projectID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid project id"})
		return 0, false
	}
	return id, true
}

type createReq struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
	Provider     string `json:"ai_provider"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil ||
		strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Requirements) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "name and requirements are required"})
		return
	}

	p, err := h.projects.Create(c.Request.Context(), service.CreateInput{
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		Requirements: req.Requirements,
		Provider:     strings.TrimSpace(req.Provider),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) list(c *gin.Context) {
	includeArchived := c.Query("include_archived") == "true"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	page, err := h.projects.List(c.Request.Context(), includeArchived, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": page.Projects,
		"total": page.Total, "limit": page.Limit, "offset": page.Offset})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	p, err := h.projects.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

type updateReq struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Requirements *string `json:"requirements"`
	Provider     *string `json:"ai_provider"`
}

func (h *Handler) update(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "name cannot be blank"})
		return
	}
	if req.Requirements != nil && strings.TrimSpace(*req.Requirements) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "requirements cannot be blank"})
		return
	}

	p, err := h.projects.Update(c.Request.Context(), id, repository.UpdatePatch{
		Name:         req.Name,
		Description:  req.Description,
		Requirements: req.Requirements,
		Provider:     req.Provider,
	})
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) setArchived(archived bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := projectID(c)
		if !ok {
			return
		}

		p, err := h.projects.SetArchived(c.Request.Context(), id, archived)
		if err != nil {
			if errors.Is(err, domain.ErrProjectNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
	}
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	err := h.projects.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
