package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/localserve/service-booking/internal/application"
	"github.com/localserve/service-booking/internal/common/auth"
	"github.com/localserve/service-booking/internal/common/domain"
	"github.com/localserve/service-booking/internal/common/middleware"
	"github.com/localserve/service-booking/internal/common/response"
	bookingDomain "github.com/localserve/service-booking/internal/domain/booking"
)

// NotesRequest is the optional body of accept, complete and cancel.
type NotesRequest struct {
	Notes string `json:"notes" binding:"max=1000"`
}

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	controller *application.LifecycleController
	service    *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(controller *application.LifecycleController, service *application.BookingService) *BookingHandler {
	return &BookingHandler{controller: controller, service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/accept", middleware.RequireRole(auth.RoleProvider), h.AcceptBooking)
		bookings.POST("/:id/complete", middleware.RequireRole(auth.RoleProvider), h.CompleteBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
	}
}

// ListBookings handles GET /api/v1/bookings. Customers see their own
// bookings, providers the bookings they hold, admins the unassigned pool.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	page, limit := parsePagination(c)

	var (
		result *domain.PaginatedResult[application.BookingDTO]
		err    error
	)
	switch actor.Role {
	case bookingDomain.ActorCustomer:
		result, err = h.service.GetCustomerBookings(c.Request.Context(), actor.ID, page, limit)
	case bookingDomain.ActorProvider:
		result, err = h.service.GetProviderBookings(c.Request.Context(), actor.ID, page, limit)
	default:
		result, err = h.service.ListUnassigned(c.Request.Context(), page, limit)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), bookingID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AcceptBooking handles POST /api/v1/bookings/:id/accept.
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	h.applyWithNotes(c, bookingDomain.ActionAccept)
}

// CompleteBooking handles POST /api/v1/bookings/:id/complete.
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	h.applyWithNotes(c, bookingDomain.ActionComplete)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel. A provider
// cancelling releases the booking for reassignment; a customer or admin
// cancels the booking itself.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	h.applyWithNotes(c, bookingDomain.ActionCancel)
}

func (h *BookingHandler) applyWithNotes(c *gin.Context, action bookingDomain.Action) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req NotesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.controller.ApplyAction(c.Request.Context(), bookingID, application.ActionRequest{
		Action:    action,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Notes:     req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// actorFrom reads the authenticated user. It writes the error response
// itself and reports false when there is none.
func actorFrom(c *gin.Context) (bookingDomain.Actor, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthenticated(c, "unauthorized")
		return bookingDomain.Actor{}, false
	}
	role, ok := middleware.GetUserRole(c)
	if !ok {
		response.Unauthenticated(c, "unauthorized")
		return bookingDomain.Actor{}, false
	}

	switch role {
	case auth.RoleCustomer:
		return bookingDomain.Actor{ID: userID, Role: bookingDomain.ActorCustomer}, true
	case auth.RoleProvider:
		return bookingDomain.Actor{ID: userID, Role: bookingDomain.ActorProvider}, true
	case auth.RoleAdmin:
		return bookingDomain.Actor{ID: userID, Role: bookingDomain.ActorAdmin}, true
	default:
		response.Forbidden(c, "unknown role")
		return bookingDomain.Actor{}, false
	}
}

func bookingIDParam(c *gin.Context) (uuid.UUID, bool) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return uuid.Nil, false
	}
	return bookingID, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
