package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/localserve/service-booking/internal/application"
	"github.com/localserve/service-booking/internal/common/auth"
	"github.com/localserve/service-booking/internal/common/middleware"
	"github.com/localserve/service-booking/internal/common/response"
	"github.com/localserve/service-booking/internal/domain/assignment"
	bookingDomain "github.com/localserve/service-booking/internal/domain/booking"
)

// AssignRequest is the body of POST /api/v1/admin/bookings/:id/assign.
type AssignRequest struct {
	ProviderID uuid.UUID `json:"provider_id" binding:"required"`
	Notes      string    `json:"notes" binding:"max=1000"`
}

// OverrideRequest is the body of POST /api/v1/admin/bookings/:id/override.
type OverrideRequest struct {
	Status     string    `json:"status" binding:"required"`
	ProviderID uuid.UUID `json:"provider_id"`
	Notes      string    `json:"notes" binding:"max=1000"`
}

// AdminBookingHandler handles admin HTTP requests for booking assignment.
type AdminBookingHandler struct {
	controller *application.LifecycleController
	engine     *application.AssignmentEngine
	service    *application.BookingService
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(
	controller *application.LifecycleController,
	engine *application.AssignmentEngine,
	service *application.BookingService,
) *AdminBookingHandler {
	return &AdminBookingHandler{controller: controller, engine: engine, service: service}
}

// RegisterRoutes registers admin booking routes.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin/bookings")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/unassigned", h.ListUnassigned)
		admin.GET("/:id/candidates", h.Candidates)
		admin.GET("/:id/assignments", h.Assignments)
		admin.POST("/:id/assign", h.Assign)
		admin.POST("/:id/auto-assign", h.AutoAssign)
		admin.POST("/:id/override", h.Override)
	}
}

// ListUnassigned handles GET /api/v1/admin/bookings/unassigned.
func (h *AdminBookingHandler) ListUnassigned(c *gin.Context) {
	page, limit := parsePagination(c)

	result, err := h.service.ListUnassigned(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// Candidates handles GET /api/v1/admin/bookings/:id/candidates.
func (h *AdminBookingHandler) Candidates(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	result, err := h.engine.Candidates(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Assignments handles GET /api/v1/admin/bookings/:id/assignments.
func (h *AdminBookingHandler) Assignments(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	result, err := h.service.ListAssignments(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Assign handles POST /api/v1/admin/bookings/:id/assign.
func (h *AdminBookingHandler) Assign(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.controller.ApplyAction(c.Request.Context(), bookingID, application.ActionRequest{
		Action:     bookingDomain.ActionAdminAssign,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Notes:      req.Notes,
		ProviderID: req.ProviderID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AutoAssign handles POST /api/v1/admin/bookings/:id/auto-assign.
func (h *AdminBookingHandler) AutoAssign(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	result, err := h.controller.AutoAssign(c.Request.Context(), bookingID)
	switch {
	case errors.Is(err, assignment.ErrNoEligibleProvider), errors.Is(err, assignment.ErrRaceLost):
		c.JSON(http.StatusConflict, response.Envelope{Error: &response.ErrorBody{
			Code:    string(assignment.OutcomeOf(err)),
			Message: err.Error(),
		}})
		return
	case err != nil:
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Override handles POST /api/v1/admin/bookings/:id/override.
func (h *AdminBookingHandler) Override(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	status, err := bookingDomain.ParseBookingStatus(req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.controller.ApplyAction(c.Request.Context(), bookingID, application.ActionRequest{
		Action:       bookingDomain.ActionOverride,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		Notes:        req.Notes,
		ProviderID:   req.ProviderID,
		TargetStatus: status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
