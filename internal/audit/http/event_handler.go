// Package http provides HTTP handlers for the audit trail query surface.
// Audit queries are restricted to admin and auditor roles.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/lockbox/internal/audit/domain"
	"github.com/allisson/lockbox/internal/audit/http/dto"
	auditUseCase "github.com/allisson/lockbox/internal/audit/usecase"
	"github.com/allisson/lockbox/internal/httputil"
	"github.com/allisson/lockbox/internal/identity"
)

// EventHandler handles HTTP requests for audit event queries.
type EventHandler struct {
	eventUseCase auditUseCase.EventUseCase
	logger       *slog.Logger
}

// NewEventHandler creates a new audit event handler with required dependencies.
func NewEventHandler(eventUseCase auditUseCase.EventUseCase, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		eventUseCase: eventUseCase,
		logger:       logger,
	}
}

// ListHandler retrieves audit events with pagination and optional filters.
// GET /v1/audit-events?event_type=&actor_id=&resource_type=&offset=0&limit=50
// Requires the admin or auditor role. Returns 200 OK with the newest events first.
func (h *EventHandler) ListHandler(c *gin.Context) {
	ident, ok := identity.GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{
			Error:   "unauthorized",
			Message: "missing caller identity",
		})
		return
	}

	if !ident.IsPrivileged() {
		c.JSON(http.StatusForbidden, httputil.ErrorResponse{
			Error:   "forbidden",
			Message: "audit queries require the admin or auditor role",
		})
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	filter := auditDomain.Filter{
		EventType:    auditDomain.EventType(c.Query("event_type")),
		ActorID:      c.Query("actor_id"),
		ResourceType: c.Query("resource_type"),
	}

	events, err := h.eventUseCase.List(c.Request.Context(), filter, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MapEventsToListResponse(events)
	c.JSON(http.StatusOK, response)
}
