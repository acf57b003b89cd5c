package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/vocab-party-api/internal/middleware"
	apperrors "github.com/yourusername/vocab-party-api/internal/pkg/errors"
	"github.com/yourusername/vocab-party-api/internal/service"
	"github.com/yourusername/vocab-party-api/internal/websocket"
)

// WSHandler стримит события Broker клиентам по WebSocket
type WSHandler struct {
	broker   *websocket.Broker
	query    *service.PartyQueryService
	upgrader gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket.
// allowedOrigins "*" разрешает любой Origin.
func NewWSHandler(broker *websocket.Broker, query *service.PartyQueryService, allowedOrigins []string) *WSHandler {
	h := &WSHandler{broker: broker, query: query}
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Пустой Origin - не браузерный клиент (мобильное приложение, curl)
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || origin == allowed {
					return true
				}
			}
			log.Printf("[WSHandler] rejected unauthorized origin: %s", origin)
			return false
		},
		EnableCompression: true,
	}
	return h
}

// HandleConnection обрабатывает GET /ws?topic=party:<id>&topic=class:<n>.
// Личность уже проверена RequireIdentity (токен в ?token=).
func (h *WSHandler) HandleConnection(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	topics := c.QueryArray("topic")
	for _, topic := range topics {
		if err := h.AuthorizeTopic(topic); err != nil {
			h.handleTopicError(c, topic, err)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		log.Printf("[WSHandler] Error upgrading connection: %v", err)
		return
	}

	log.Printf("[WSHandler] Connection upgraded for UserID: %d, topics: %v", userID, topics)
	client := websocket.NewClient(conn, h.broker, strconv.FormatUint(uint64(userID), 10), h.AuthorizeTopic)
	client.Serve(topics...)
}

// AuthorizeTopic проверяет, что топик существует: party:<id> известной игры или class:<n>
func (h *WSHandler) AuthorizeTopic(topic string) error {
	switch {
	case strings.HasPrefix(topic, "party:"):
		partyID := strings.TrimPrefix(topic, "party:")
		if partyID == "" {
			return fmt.Errorf("empty party id in topic: %w", apperrors.ErrValidation)
		}
		_, err := h.query.GetState(partyID)
		return err
	case strings.HasPrefix(topic, "class:"):
		id, err := strconv.ParseUint(strings.TrimPrefix(topic, "class:"), 10, 32)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid class topic %q: %w", topic, apperrors.ErrValidation)
		}
		return nil
	default:
		return fmt.Errorf("unknown topic %q: %w", topic, apperrors.ErrValidation)
	}
}

func (h *WSHandler) handleTopicError(c *gin.Context, topic string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "topic": topic})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "topic": topic})
	default:
		log.Printf("[WSHandler] topic %s authorization failed: %v", topic, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
