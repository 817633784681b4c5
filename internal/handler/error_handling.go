package handler

import (
	"errors"
	"net/http"

	"adventure-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError переводит доменную ошибку в HTTP статус и ErrorResponse.
func (h *Handler) handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrInvalidReference):
		statusCode = http.StatusUnprocessableEntity
		errResp = models.ErrorResponse{Code: models.CodeInvalidReference, Message: err.Error()}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Code: models.CodeNotFound, Message: err.Error()}
	case errors.Is(err, models.ErrDiceNotRolled):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.CodeDiceNotRolled, Message: err.Error()}
	case errors.Is(err, models.ErrDiceTooLow):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.CodeDiceTooLow, Message: err.Error()}
	case errors.Is(err, models.ErrNoStartPage):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.CodeNoStartPage, Message: err.Error()}
	case errors.Is(err, models.ErrSessionMoved):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.CodeSessionMoved, Message: err.Error()}
	case errors.Is(err, models.ErrInvalidChoice):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.CodeInvalidChoice, Message: err.Error()}
	case errors.Is(err, models.ErrInvalidDiceRoll):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.CodeInvalidDiceRoll, Message: err.Error()}
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrInvalidIdentity):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.CodeBadRequest, Message: err.Error()}
	case errors.Is(err, models.ErrStorySuspended):
		statusCode = http.StatusForbidden
		errResp = models.ErrorResponse{Code: models.CodeStorySuspended, Message: err.Error()}
	case errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.CodeUnauthorized, Message: "Authentication required"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		errResp = models.ErrorResponse{Code: models.CodeForbidden, Message: "Not allowed"}
	default:
		h.logger.Error("Unhandled internal error", zap.String("path", c.FullPath()), zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Code: models.CodeInternal, Message: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.CodeBadRequest, Message: msg})
}
