package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vocab-party-api/internal/middleware"
	apperrors "github.com/yourusername/vocab-party-api/internal/pkg/errors"
	"github.com/yourusername/vocab-party-api/internal/websocket"
)

func newWSServer(t *testing.T, f *handlerFixture) *httptest.Server {
	t.Helper()
	identity := middleware.NewIdentityMiddleware(f.jwt, []string{"teacher"})
	ws := NewWSHandler(f.broker, f.query, []string{"*"})

	router := gin.New()
	router.GET("/ws", identity.RequireIdentity(), ws.HandleConnection)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query
}

func readWSEvent(t *testing.T, conn *gorillaws.Conn) websocket.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev websocket.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

func TestWSHandler_StreamsPartyEvents(t *testing.T) {
	// Arrange
	f := newHandlerFixture(t)
	server := newWSServer(t, f)
	partyID := f.createParty(t)
	topic := "party:" + partyID

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(server, "topic="+topic+"&token="+f.token(t, 1, "student")), nil)
	require.NoError(t, err)
	defer conn.Close()

	ack := readWSEvent(t, conn)
	require.Equal(t, websocket.ServerSubscribed, ack.Type)
	require.Eventually(t, func() bool { return f.broker.SubscriberCount(topic) == 1 }, time.Second, 10*time.Millisecond)

	// Act
	_, err = f.manager.Join(partyID, 1, "Lena")
	require.NoError(t, err)
	_, err = f.manager.Start(partyID)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, websocket.PartyPlayerJoined, readWSEvent(t, conn).Type)
	assert.Equal(t, websocket.PartyStarted, readWSEvent(t, conn).Type)
}

func TestWSHandler_SubscribeAfterConnect(t *testing.T) {
	f := newHandlerFixture(t)
	server := newWSServer(t, f)

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(server, "token="+f.token(t, 1, "student")), nil)
	require.NoError(t, err)
	defer conn.Close()

	// Подписка на класс управляющим сообщением
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "subscribe",
		"data": map[string]string{"topic": "class:5"},
	}))
	ack := readWSEvent(t, conn)
	require.Equal(t, websocket.ServerSubscribed, ack.Type)
	require.Eventually(t, func() bool { return f.broker.SubscriberCount("class:5") == 1 }, time.Second, 10*time.Millisecond)

	f.createParty(t)
	assert.Equal(t, websocket.PartyCreated, readWSEvent(t, conn).Type)

	// Неизвестный топик - ошибка без закрытия соединения
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "subscribe",
		"data": map[string]string{"topic": "quiz:1"},
	}))
	assert.Equal(t, websocket.ServerError, readWSEvent(t, conn).Type)
}

func TestWSHandler_RejectsBeforeUpgrade(t *testing.T) {
	f := newHandlerFixture(t)
	server := newWSServer(t, f)
	token := f.token(t, 1, "student")

	testCases := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"без токена", "topic=class:5", http.StatusUnauthorized},
		{"неизвестная игра", "topic=party:6b1a3f1e-97a4-4d5c-8a2e-5d0e3c2f4b11&token=" + token, http.StatusNotFound},
		{"неверный топик", "topic=class:abc&token=" + token, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, resp, err := gorillaws.DefaultDialer.Dial(wsURL(server, tc.query), nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestWSHandler_AuthorizeTopic(t *testing.T) {
	f := newHandlerFixture(t)
	ws := NewWSHandler(f.broker, f.query, nil)
	partyID := f.createParty(t)

	assert.NoError(t, ws.AuthorizeTopic("party:"+partyID))
	assert.NoError(t, ws.AuthorizeTopic("class:5"))
	assert.True(t, errors.Is(ws.AuthorizeTopic("party:"), apperrors.ErrValidation))
	assert.True(t, errors.Is(ws.AuthorizeTopic("class:0"), apperrors.ErrValidation))
	assert.True(t, errors.Is(ws.AuthorizeTopic("other"), apperrors.ErrValidation))
	assert.True(t, errors.Is(ws.AuthorizeTopic("party:missing"), apperrors.ErrNotFound))
}
