package handler

import (
	"net/http"
	"strconv"

	"adventure-server/internal/service"
	"adventure-server/shared/middleware"
	"adventure-server/shared/models"
	"adventure-server/shared/utils"

	"github.com/gin-gonic/gin"
)

func (h *Handler) endingStats(c *gin.Context) {
	storyID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.analytics.EndingStats(c.Request.Context(), storyID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) endingShare(c *gin.Context) {
	storyID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	pageID, ok := h.parseUUIDParam(c, "page_id")
	if !ok {
		return
	}
	share, err := h.analytics.EndingShare(c.Request.Context(), storyID, pageID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, share)
}

func (h *Handler) topStories(c *gin.Context) {
	limit := h.topLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(v, utils.MaxPageLimit)
	}
	top, err := h.analytics.TopStories(c.Request.Context(), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, top)
}

func (h *Handler) statsSummary(c *gin.Context) {
	summary, err := h.analytics.Summary(c.Request.Context(), h.topLimit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) playerPath(c *gin.Context) {
	playID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	play, err := h.analytics.GetPlay(c.Request.Context(), playID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if !service.CanViewPlayerPath(middleware.GetPrincipal(c), play) {
		h.handleServiceError(c, models.ErrForbidden)
		return
	}
	path, err := h.analytics.PlayerPath(c.Request.Context(), playID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, path)
}

func (h *Handler) myPlays(c *gin.Context) {
	userID := middleware.GetPrincipal(c).Identity.UserID
	limit, offset := utils.ParseLimitOffset(c.Query("limit"), c.Query("offset"), utils.DefaultPageLimit, utils.MaxPageLimit)
	plays, err := h.analytics.PlaysByUser(c.Request.Context(), *userID, limit, offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PaginatedResponse[*models.Play]{Data: plays, Limit: limit, Offset: offset})
}
