package handler

import (
	"net/http"

	"adventure-server/internal/service"
	"adventure-server/shared/middleware"
	"adventure-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler exposes the story store, gameplay and analytics over HTTP.
type Handler struct {
	stories   service.StoryService
	gameplay  service.GameplayService
	analytics service.AnalyticsService
	topLimit  int
	logger    *zap.Logger
}

func NewHandler(
	stories service.StoryService,
	gameplay service.GameplayService,
	analytics service.AnalyticsService,
	topLimit int,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		stories:   stories,
		gameplay:  gameplay,
		analytics: analytics,
		topLimit:  topLimit,
		logger:    logger.Named("Handler"),
	}
}

// RegisterRoutes mounts the /api routes. ResolvePrincipal must run before them;
// playMiddleware is applied to the /api/play group only.
func (h *Handler) RegisterRoutes(router gin.IRouter, playMiddleware ...gin.HandlerFunc) {
	api := router.Group("/api")

	// --- Истории, страницы, выборы ---
	api.GET("/stories", h.listStories)
	api.POST("/stories", h.createStory)
	api.GET("/stories/:id", h.getStory)
	api.PUT("/stories/:id", h.updateStory)
	api.DELETE("/stories/:id", h.deleteStory)
	api.GET("/stories/:id/start", h.getStartPage)
	api.GET("/stories/:id/tree", h.getStoryTree)
	api.POST("/stories/:id/pages", h.createPage)
	api.POST("/stories/:id/suspend", h.suspendStory)
	api.POST("/stories/:id/unsuspend", h.unsuspendStory)

	api.GET("/pages/:id", h.getPage)
	api.PUT("/pages/:id", h.updatePage)
	api.DELETE("/pages/:id", h.deletePage)
	api.POST("/pages/:id/choices", h.createChoice)

	api.PUT("/choices/:id", h.updateChoice)
	api.DELETE("/choices/:id", h.deleteChoice)

	// --- Прохождение ---
	play := api.Group("/play", playMiddleware...)
	play.POST("/:story_id", h.startOrResume)
	play.POST("/:story_id/roll", h.rollDice)
	play.POST("/:story_id/choices/:choice_id", h.resolveChoice)

	// --- Статистика ---
	api.GET("/stories/:id/stats/endings", h.endingStats)
	api.GET("/stories/:id/stats/endings/:page_id", h.endingShare)
	api.GET("/stats/top", h.topStories)
	api.GET("/stats/summary", h.statsSummary)
	api.GET("/plays/:id/path", h.playerPath)
	api.GET("/me/plays", middleware.RequireAuthenticated(), h.myPlays)
}

func (h *Handler) parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Warn("Invalid UUID in path", zap.String("param", name), zap.String("value", raw))
		badRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// loadStoryCaps loads the story and the caller's capabilities on it.
func (h *Handler) loadStoryCaps(c *gin.Context, storyID uuid.UUID) (*models.Story, models.Capabilities, bool) {
	story, err := h.stories.GetStory(c.Request.Context(), storyID, false)
	if err != nil {
		h.handleServiceError(c, err)
		return nil, models.Capabilities{}, false
	}
	return story, service.ResolveCapabilities(middleware.GetPrincipal(c), story), true
}

// requireEdit aborts with 403 unless the caller may edit storyID.
func (h *Handler) requireEdit(c *gin.Context, storyID uuid.UUID) bool {
	_, caps, ok := h.loadStoryCaps(c, storyID)
	if !ok {
		return false
	}
	if !caps.CanEditStory {
		h.handleServiceError(c, models.ErrForbidden)
		return false
	}
	return true
}

// requireEditPage resolves the owning story of a page and checks edit rights.
func (h *Handler) requireEditPage(c *gin.Context, pageID uuid.UUID) (*models.Page, bool) {
	page, err := h.stories.GetPage(c.Request.Context(), pageID)
	if err != nil {
		h.handleServiceError(c, err)
		return nil, false
	}
	if !h.requireEdit(c, page.StoryID) {
		return nil, false
	}
	return page, true
}

func (h *Handler) noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
