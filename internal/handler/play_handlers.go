package handler

import (
	"errors"
	"io"
	"net/http"

	"adventure-server/shared/middleware"
	"adventure-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type resolveChoiceRequest struct {
	DiceRoll *int `json:"dice_roll"`
}

type rollDiceResponse struct {
	Roll int `json:"roll"`
}

func (h *Handler) startOrResume(c *gin.Context) {
	storyID, ok := h.parseUUIDParam(c, "story_id")
	if !ok {
		return
	}
	state, err := h.gameplay.StartOrResume(c.Request.Context(), middleware.GetPrincipal(c).Identity, storyID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) rollDice(c *gin.Context) {
	storyID, ok := h.parseUUIDParam(c, "story_id")
	if !ok {
		return
	}
	roll, err := h.gameplay.RollDice(c.Request.Context(), middleware.GetPrincipal(c).Identity, storyID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rollDiceResponse{Roll: roll})
}

func (h *Handler) resolveChoice(c *gin.Context) {
	storyID, ok := h.parseUUIDParam(c, "story_id")
	if !ok {
		return
	}
	choiceID, ok := h.parseUUIDParam(c, "choice_id")
	if !ok {
		return
	}
	// Тело необязательно. dice_roll принимаем только от инструментов с API-ключом,
	// игроки всегда играют с броском сервера.
	var req resolveChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	principal := middleware.GetPrincipal(c)
	var res *models.ResolveResult
	var err error
	if principal.ServiceKey && req.DiceRoll != nil {
		res, err = h.gameplay.ResolveChoiceWithRoll(c.Request.Context(), principal.Identity, storyID, choiceID, *req.DiceRoll)
	} else {
		if req.DiceRoll != nil {
			h.logger.Debug("Ignoring client dice roll",
				zap.String("sessionKey", principal.Identity.Key()), zap.Stringer("choiceID", choiceID))
		}
		res, err = h.gameplay.ResolveChoice(c.Request.Context(), principal.Identity, storyID, choiceID)
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
