package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
	"github.com/yourusername/vocab-party-api/internal/handler/dto"
	"github.com/yourusername/vocab-party-api/internal/middleware"
	apperrors "github.com/yourusername/vocab-party-api/internal/pkg/errors"
	"github.com/yourusername/vocab-party-api/internal/service"
	"github.com/yourusername/vocab-party-api/internal/service/partymanager"
)

// Ключи контекста для параметров URL
const (
	ctxClassID = "classID"
	ctxPartyID = "partyID"
)

// PartyHandler обрабатывает запросы живых игр
type PartyHandler struct {
	manager *service.PartyManager
	query   *service.PartyQueryService
}

// NewPartyHandler создает новый обработчик игр
func NewPartyHandler(manager *service.PartyManager, query *service.PartyQueryService) *PartyHandler {
	return &PartyHandler{manager: manager, query: query}
}

// RegisterRoutes регистрирует маршруты игр в группе /api.
// limiter может быть nil (без Redis лимиты не применяются).
func (h *PartyHandler) RegisterRoutes(api *gin.RouterGroup, identity *middleware.IdentityMiddleware, limiter *middleware.RateLimiter) {
	authed := api.Group("", identity.RequireIdentity())

	classes := authed.Group("/classes/:classId", middleware.ExtractUintParam("classId", ctxClassID))
	{
		classes.POST("/parties", identity.HostOnly(), h.CreateParty)
		classes.GET("/parties/active", h.GetActiveParty)
	}

	parties := authed.Group("/parties/:id", middleware.ExtractPartyID("id", ctxPartyID))
	{
		parties.GET("", h.GetParty)
		parties.GET("/leaderboard", h.GetLeaderboard)
		parties.POST("/start", identity.HostOnly(), h.StartParty)
		parties.POST("/advance", identity.HostOnly(), h.AdvanceParty)

		join := []gin.HandlerFunc{h.JoinParty}
		answers := []gin.HandlerFunc{h.SubmitAnswer}
		if limiter != nil {
			join = append([]gin.HandlerFunc{limiter.Limit(middleware.DefaultJoinRateLimitConfig(), middleware.KeyByIP)}, join...)
			answers = append([]gin.HandlerFunc{limiter.Limit(middleware.DefaultAnswerRateLimitConfig(), middleware.KeyByUser)}, answers...)
		}
		parties.POST("/join", join...)
		parties.POST("/answers", answers...)
	}
}

// CreateParty создает игру для класса
func (h *PartyHandler) CreateParty(c *gin.Context) {
	var req dto.CreatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hostID, _ := middleware.UserIDFromContext(c)

	snap, err := h.manager.CreateParty(service.CreatePartyInput{
		ClassID:  c.GetUint(ctxClassID),
		LessonID: req.LessonID,
		Mode:     entity.PartyMode(req.Mode),
		TimerSec: req.TimerSec,
		HostID:   hostID,
	})
	if err != nil {
		h.handlePartyError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewPartyResponse(snap.Party))
}

// GetActiveParty возвращает состояние активной игры класса
func (h *PartyHandler) GetActiveParty(c *gin.Context) {
	view, err := h.query.GetStateForClass(c.GetUint(ctxClassID))
	if err != nil {
		h.handlePartyError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPartyStateResponse(view))
}

// GetParty возвращает состояние игры
func (h *PartyHandler) GetParty(c *gin.Context) {
	view, err := h.query.GetState(c.GetString(ctxPartyID))
	if err != nil {
		h.handlePartyError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPartyStateResponse(view))
}

// GetLeaderboard возвращает таблицу лидеров игры
func (h *PartyHandler) GetLeaderboard(c *gin.Context) {
	partyID := c.GetString(ctxPartyID)
	entries, err := h.manager.Leaderboard(partyID)
	if err != nil {
		h.handlePartyError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewLeaderboardResponse(partyID, entries))
}

// JoinParty добавляет текущего пользователя в игру
func (h *PartyHandler) JoinParty(c *gin.Context) {
	var req dto.JoinPartyRequest
	// Тело необязательно
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, _ := middleware.UserIDFromContext(c)
	displayName := req.DisplayName
	if displayName == "" {
		displayName = c.GetString(middleware.ContextDisplayName)
	}

	player, err := h.manager.Join(c.GetString(ctxPartyID), userID, displayName)
	if err != nil {
		h.handlePartyError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPlayerResponse(*player))
}

// StartParty запускает игру
func (h *PartyHandler) StartParty(c *gin.Context) {
	snap, err := h.manager.Start(c.GetString(ctxPartyID))
	if err != nil {
		h.handlePartyError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPartyResponse(snap.Party))
}

// AdvanceParty переходит к следующему вопросу или завершает игру
func (h *PartyHandler) AdvanceParty(c *gin.Context) {
	var req dto.AdvanceRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	partyID := c.GetString(ctxPartyID)
	var (
		result *partymanager.AdvanceResult
		err    error
	)
	if req.ExpectedIndex != nil {
		result, err = h.manager.AdvanceIfCurrent(partyID, *req.ExpectedIndex)
	} else {
		result, err = h.manager.Advance(partyID)
	}
	if err != nil {
		h.handlePartyError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AdvanceResponse{
		Advanced: result.Advanced,
		Ended:    result.Ended,
		Party:    dto.NewPartyResponse(result.Snapshot.Party),
	})
}

// SubmitAnswer принимает ответ текущего пользователя
func (h *PartyHandler) SubmitAnswer(c *gin.Context) {
	var req dto.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, _ := middleware.UserIDFromContext(c)

	eval, err := h.manager.SubmitAnswer(service.SubmitAnswerInput{
		PartyID:      c.GetString(ctxPartyID),
		UserID:       userID,
		QuestionID:   req.QuestionID,
		Direction:    entity.Direction(req.Direction),
		Text:         req.Text,
		ChosenGender: req.ChosenGender,
	})
	if err != nil {
		h.handlePartyError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAnswerResultResponse(eval))
}

// bindOptionalJSON разбирает тело, если оно есть. Пустое тело не ошибка,
// длина тела не проверяется, так как у chunked запросов она неизвестна.
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// handlePartyError отправляет HTTP ответ по категории ошибки
func (h *PartyHandler) handlePartyError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("[PartyHandler] Internal server error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
