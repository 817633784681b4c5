package handler

import (
	"net/http"

	"adventure-server/internal/service"
	"adventure-server/shared/middleware"
	"adventure-server/shared/models"
	"adventure-server/shared/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *Handler) listStories(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	limit, offset := utils.ParseLimitOffset(c.Query("limit"), c.Query("offset"), utils.DefaultPageLimit, utils.MaxPageLimit)
	filter := models.StoryFilter{
		Status: models.StoryStatus(c.Query("status")),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.Query("author_id"); raw != "" {
		authorID, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "Invalid author_id format")
			return
		}
		filter.AuthorID = &authorID
	}
	// Чужие черновики видны только администраторам.
	ownList := filter.AuthorID != nil && p.Identity.UserID != nil && *filter.AuthorID == *p.Identity.UserID
	if !p.IsAdmin() && !ownList {
		filter.Status = models.StatusPublished
	}

	stories, err := h.stories.ListStories(c.Request.Context(), filter)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PaginatedResponse[*models.Story]{Data: stories, Limit: limit, Offset: offset})
}

func (h *Handler) createStory(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	if !service.CanCreateStory(p) {
		h.handleServiceError(c, models.ErrForbidden)
		return
	}
	var in service.CreateStoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	story, err := h.stories.CreateStory(c.Request.Context(), p.Identity.UserID, in)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.logger.Info("Story created", zap.Stringer("storyID", story.ID), zap.String("identity", p.Identity.Key()))
	c.JSON(http.StatusCreated, story)
}

func (h *Handler) getStory(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	story, err := h.stories.GetStory(c.Request.Context(), id, c.Query("include") == "graph")
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if !service.CanReadStory(middleware.GetPrincipal(c), story) {
		h.handleServiceError(c, models.ErrStoryNotFound)
		return
	}
	c.JSON(http.StatusOK, story)
}

func (h *Handler) updateStory(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok || !h.requireEdit(c, id) {
		return
	}
	var in service.UpdateStoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	// Статус suspended меняется только через модерацию.
	if in.Status != nil && *in.Status == models.StatusSuspended && !middleware.GetPrincipal(c).IsAdmin() {
		h.handleServiceError(c, models.ErrForbidden)
		return
	}
	story, err := h.stories.UpdateStory(c.Request.Context(), id, in)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, story)
}

func (h *Handler) deleteStory(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok || !h.requireEdit(c, id) {
		return
	}
	if err := h.stories.DeleteStory(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.noContent(c)
}

func (h *Handler) getStartPage(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	story, caps, ok := h.loadStoryCaps(c, id)
	if !ok {
		return
	}
	if !service.CanReadStory(middleware.GetPrincipal(c), story) && !caps.CanEditStory {
		h.handleServiceError(c, models.ErrStoryNotFound)
		return
	}
	page, err := h.stories.GetStartPage(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getStoryTree(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	_, caps, ok := h.loadStoryCaps(c, id)
	if !ok {
		return
	}
	if !caps.CanViewTree {
		h.handleServiceError(c, models.ErrForbidden)
		return
	}
	tree, err := h.stories.GetStoryTree(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (h *Handler) suspendStory(c *gin.Context) {
	h.moderate(c, models.StatusSuspended)
}

func (h *Handler) unsuspendStory(c *gin.Context) {
	h.moderate(c, models.StatusPublished)
}

func (h *Handler) moderate(c *gin.Context, status models.StoryStatus) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	_, caps, ok := h.loadStoryCaps(c, id)
	if !ok {
		return
	}
	if !caps.CanModerate {
		h.handleServiceError(c, models.ErrForbidden)
		return
	}
	if err := h.stories.SetStatus(c.Request.Context(), id, status); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.logger.Info("Story status changed by moderator",
		zap.Stringer("storyID", id), zap.String("status", string(status)),
		zap.String("identity", middleware.GetPrincipal(c).Identity.Key()))
	h.noContent(c)
}

// --- Страницы ---

func (h *Handler) createPage(c *gin.Context) {
	storyID, ok := h.parseUUIDParam(c, "id")
	if !ok || !h.requireEdit(c, storyID) {
		return
	}
	var in service.CreatePageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	page, err := h.stories.CreatePage(c.Request.Context(), storyID, in)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, page)
}

func (h *Handler) getPage(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	page, err := h.stories.GetPage(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	story, caps, ok := h.loadStoryCaps(c, page.StoryID)
	if !ok {
		return
	}
	if !service.CanReadStory(middleware.GetPrincipal(c), story) && !caps.CanEditStory {
		h.handleServiceError(c, models.ErrPageNotFound)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) updatePage(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if _, ok := h.requireEditPage(c, id); !ok {
		return
	}
	var in service.UpdatePageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	page, err := h.stories.UpdatePage(c.Request.Context(), id, in)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) deletePage(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if _, ok := h.requireEditPage(c, id); !ok {
		return
	}
	if err := h.stories.DeletePage(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.noContent(c)
}

// --- Выборы ---

func (h *Handler) createChoice(c *gin.Context) {
	pageID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if _, ok := h.requireEditPage(c, pageID); !ok {
		return
	}
	var in service.CreateChoiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	choice, err := h.stories.CreateChoice(c.Request.Context(), pageID, in)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, choice)
}

func (h *Handler) updateChoice(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok || !h.requireEditChoice(c, id) {
		return
	}
	var in service.UpdateChoiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	choice, err := h.stories.UpdateChoice(c.Request.Context(), id, in)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, choice)
}

func (h *Handler) deleteChoice(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok || !h.requireEditChoice(c, id) {
		return
	}
	if err := h.stories.DeleteChoice(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.noContent(c)
}

func (h *Handler) requireEditChoice(c *gin.Context, choiceID uuid.UUID) bool {
	choice, err := h.stories.GetChoice(c.Request.Context(), choiceID)
	if err != nil {
		h.handleServiceError(c, err)
		return false
	}
	_, ok := h.requireEditPage(c, choice.PageID)
	return ok
}
