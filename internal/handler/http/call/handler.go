package call

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"wavelink-backend/internal/domain"
	"wavelink-backend/internal/service/call"
	apperrors "wavelink-backend/pkg/errors"
	"wavelink-backend/pkg/logger"
	"wavelink-backend/pkg/pagination"
	"wavelink-backend/pkg/response"
)

// Handler handles call history HTTP requests
type Handler struct {
	callService *call.Service
}

// NewHandler creates a new call handler
func NewHandler(callService *call.Service) *Handler {
	return &Handler{
		callService: callService,
	}
}

// History lists the authenticated user's concluded calls, newest first
// GET /v1/calls
func (h *Handler) History(c *gin.Context) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "Not authenticated")
		return
	}

	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		response.InternalError(c, "Invalid user ID")
		return
	}

	params, err := pagination.Parse(c.Query("limit"), c.Query("offset"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	entries, err := h.callService.History(c.Request.Context(), userID, params.Limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list call history",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		appErr := apperrors.GetAppError(err)
		response.Error(c, appErr.StatusCode, string(appErr.Code), "Failed to list call history")
		return
	}

	// An empty history is a list, not an absence
	if entries == nil {
		entries = []*domain.CallLogEntry{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"calls":  entries,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}
