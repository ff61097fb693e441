package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftforge/forge-backend/internal/locks"
	"github.com/craftforge/forge-backend/internal/pipeline/domain"
)

// failureStatus maps the stage failure taxonomy to HTTP status codes.
// Transient and upstream-shape failures are gateway errors, configuration
// problems are service-unavailable, caller mistakes are bad requests.
func failureStatus(kind domain.FailureKind) int {
	switch kind {
	case domain.KindPreconditionNotMet, domain.KindUnsupportedProvider:
		return http.StatusBadRequest
	case domain.KindProviderUnavailable:
		return http.StatusServiceUnavailable
	case domain.KindEmptyResponse, domain.KindMalformedResponse, domain.KindTransientProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// advance runs one stage transition and renders its result.
func (h *Handler) advance(target domain.Stage) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := projectID(c)
		if !ok {
			return
		}

		res, err := h.pipeline.Advance(c.Request.Context(), id, target)
		if err != nil {
			switch {
			case errors.Is(err, locks.ErrAlreadyLocked):
				c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
			case errors.Is(err, domain.ErrProjectNotFound):
				c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			}
			return
		}

		if !res.Success {
			c.JSON(failureStatus(res.Kind), gin.H{
				"ok": false, "kind": res.Kind, "error": res.Message,
			})
			return
		}

		body := gin.H{"ok": true, "stage": res.NewStage, "artifacts": res.Artifacts}
		if len(res.TaskFailures) > 0 {
			body["task_failures"] = res.TaskFailures
		}
		c.JSON(http.StatusOK, body)
	}
}

func (h *Handler) listProviders(c *gin.Context) {
	configs, err := h.pipeline.ListProviders(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "providers": configs})
}
