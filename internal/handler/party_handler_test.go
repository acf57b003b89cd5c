package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vocab-party-api/internal/domain/entity"
	"github.com/yourusername/vocab-party-api/internal/handler/dto"
	"github.com/yourusername/vocab-party-api/internal/middleware"
	"github.com/yourusername/vocab-party-api/internal/repository/memory"
	"github.com/yourusername/vocab-party-api/internal/service"
	"github.com/yourusername/vocab-party-api/internal/service/partymanager"
	"github.com/yourusername/vocab-party-api/internal/websocket"
	"github.com/yourusername/vocab-party-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockQuestionSource реализует repository.QuestionSource
type MockQuestionSource struct {
	mock.Mock
}

func (m *MockQuestionSource) ListQuestions(lessonID uint) ([]entity.LessonQuestion, error) {
	args := m.Called(lessonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.LessonQuestion), args.Error(1)
}

func (m *MockQuestionSource) GetByIDs(ids []uint) ([]entity.LessonQuestion, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.LessonQuestion), args.Error(1)
}

func handlerLesson() []entity.LessonQuestion {
	return []entity.LessonQuestion{
		{ID: 21, LessonID: 1, SourceText: "Haus", TargetText: "dům", PartOfSpeech: "noun", Genders: entity.StringArray{"das"}, PointValue: 4},
		{ID: 22, LessonID: 1, SourceText: "gut", TargetText: "dobrý", PointValue: 2},
	}
}

type handlerFixture struct {
	router  *gin.Engine
	jwt     *auth.JWTService
	manager *service.PartyManager
	query   *service.PartyQueryService
	broker  *websocket.Broker
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	questions := new(MockQuestionSource)
	questions.On("ListQuestions", uint(1)).Return(handlerLesson(), nil)
	questions.On("GetByIDs", mock.Anything).Return(handlerLesson(), nil)

	broker := websocket.NewBroker()
	t.Cleanup(broker.Close)

	store := memory.NewPartyStore()
	manager := service.NewPartyManager(service.PartyManagerDeps{
		Store:      store,
		Questions:  questions,
		Publisher:  broker,
		Directions: partymanager.FixedDirection(entity.DirectionReverse),
	})
	t.Cleanup(manager.Wait)
	query := service.NewPartyQueryService(store, manager)

	jwtService, err := auth.NewJWTService("handler-secret")
	require.NoError(t, err)
	identity := middleware.NewIdentityMiddleware(jwtService, []string{"teacher"})

	router := gin.New()
	NewPartyHandler(manager, query).RegisterRoutes(router.Group("/api"), identity, nil)

	return &handlerFixture{router: router, jwt: jwtService, manager: manager, query: query, broker: broker}
}

func (f *handlerFixture) token(t *testing.T, userID uint, role string) string {
	t.Helper()
	token, err := f.jwt.GenerateToken(userID, "", role, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *handlerFixture) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *handlerFixture) createParty(t *testing.T) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/classes/5/parties", f.token(t, 100, "teacher"),
		dto.CreatePartyRequest{LessonID: 1, TimerSec: 30})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.PartyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ID
}

func TestPartyHandler_FullFlow(t *testing.T) {
	f := newHandlerFixture(t)
	host := f.token(t, 100, "teacher")
	player := f.token(t, 1, "student")

	// Создание
	partyID := f.createParty(t)

	// Присоединение
	w := f.do(t, http.MethodPost, "/api/parties/"+partyID+"/join", player, dto.JoinPartyRequest{DisplayName: "Lena"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var joined dto.PlayerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &joined))
	assert.Equal(t, "Lena", joined.DisplayName)

	// Старт
	w = f.do(t, http.MethodPost, "/api/parties/"+partyID+"/start", host, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Состояние показывает вопрос без ответа
	w = f.do(t, http.MethodGet, "/api/parties/"+partyID, player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state dto.PartyStateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, "running", state.Party.Status)
	require.NotNil(t, state.Question)
	assert.Equal(t, "dům", state.Question.Prompt)
	assert.Equal(t, "reverse", state.Question.Direction)
	assert.True(t, state.Question.GenderRequired)
	assert.NotContains(t, w.Body.String(), "Haus", "правильный ответ не раскрывается")

	// Ответ: текст верен, род нет
	gender := "der"
	w = f.do(t, http.MethodPost, "/api/parties/"+partyID+"/answers", player,
		dto.SubmitAnswerRequest{QuestionID: 21, Text: "Haus", ChosenGender: &gender})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result dto.AnswerResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.TextCorrect)
	assert.False(t, result.GenderCorrect)
	assert.True(t, result.GenderRetryAllowed)
	assert.Equal(t, 0, result.PointsAwarded)

	// Повторный ответ отклоняется
	w = f.do(t, http.MethodPost, "/api/parties/"+partyID+"/answers", player,
		dto.SubmitAnswerRequest{QuestionID: 21, Text: "Haus", ChosenGender: &gender})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Переход с ожидаемым индексом: устаревший индекс ничего не меняет
	stale := 5
	w = f.do(t, http.MethodPost, "/api/parties/"+partyID+"/advance", host, dto.AdvanceRequest{ExpectedIndex: &stale})
	require.Equal(t, http.StatusOK, w.Code)
	var adv dto.AdvanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &adv))
	assert.False(t, adv.Advanced)
	assert.Equal(t, 0, adv.Party.CurrentIndex)

	// Второй вопрос, затем завершение
	w = f.do(t, http.MethodPost, "/api/parties/"+partyID+"/advance", host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodPost, "/api/parties/"+partyID+"/answers", player,
		dto.SubmitAnswerRequest{QuestionID: 22, Text: " Gut "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/parties/"+partyID+"/advance", host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &adv))
	assert.True(t, adv.Ended)
	assert.Equal(t, "ended", adv.Party.Status)

	// Таблица лидеров
	w = f.do(t, http.MethodGet, "/api/parties/"+partyID+"/leaderboard", player, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var board dto.LeaderboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	require.Len(t, board.Entries, 1)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, 2, board.Entries[0].Score)

	// После завершения присоединиться нельзя
	w = f.do(t, http.MethodPost, "/api/parties/"+partyID+"/join", f.token(t, 2, "student"), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPartyHandler_ErrorMapping(t *testing.T) {
	f := newHandlerFixture(t)
	host := f.token(t, 100, "teacher")
	student := f.token(t, 1, "student")
	partyID := f.createParty(t)
	unknown := "6b1a3f1e-97a4-4d5c-8a2e-5d0e3c2f4b11"

	testCases := []struct {
		name       string
		method     string
		target     string
		token      string
		body       interface{}
		wantStatus int
	}{
		{"без токена", http.MethodGet, "/api/parties/" + partyID, "", nil, http.StatusUnauthorized},
		{"ученик не может создать", http.MethodPost, "/api/classes/5/parties", student, dto.CreatePartyRequest{LessonID: 1, TimerSec: 30}, http.StatusForbidden},
		{"ученик не может стартовать", http.MethodPost, "/api/parties/" + partyID + "/start", student, nil, http.StatusForbidden},
		{"таймер вне диапазона", http.MethodPost, "/api/classes/5/parties", host, dto.CreatePartyRequest{LessonID: 1, TimerSec: 1}, http.StatusUnprocessableEntity},
		{"неизвестный режим", http.MethodPost, "/api/classes/5/parties", host, dto.CreatePartyRequest{LessonID: 1, TimerSec: 30, Mode: "bingo"}, http.StatusUnprocessableEntity},
		{"нет lesson_id", http.MethodPost, "/api/classes/5/parties", host, map[string]int{"timer_sec": 30}, http.StatusBadRequest},
		{"неизвестная игра", http.MethodGet, "/api/parties/" + unknown, student, nil, http.StatusNotFound},
		{"неверный id игры", http.MethodGet, "/api/parties/abc", student, nil, http.StatusBadRequest},
		{"advance в lobby", http.MethodPost, "/api/parties/" + partyID + "/advance", host, nil, http.StatusConflict},
		{"ответ в lobby", http.MethodPost, "/api/parties/" + partyID + "/answers", student, dto.SubmitAnswerRequest{QuestionID: 21, Text: "x"}, http.StatusConflict},
		{"нет активной игры класса", http.MethodGet, "/api/classes/6/parties/active", student, nil, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, tc.method, tc.target, tc.token, tc.body)
			assert.Equal(t, tc.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestPartyHandler_ActiveForClass(t *testing.T) {
	f := newHandlerFixture(t)
	partyID := f.createParty(t)

	w := f.do(t, http.MethodGet, "/api/classes/5/parties/active", f.token(t, 1, "student"), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var state dto.PartyStateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, partyID, state.Party.ID)
	assert.Equal(t, "lobby", state.Party.Status)
	assert.Nil(t, state.CurrentQuestionID)
	assert.Nil(t, state.Question)
}

func TestPartyHandler_JoinUsesTokenDisplayName(t *testing.T) {
	f := newHandlerFixture(t)
	partyID := f.createParty(t)
	token, err := f.jwt.GenerateToken(3, "Petr", "student", time.Hour)
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/api/parties/"+partyID+"/join", token, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var joined dto.PlayerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &joined))
	assert.Equal(t, "Petr", joined.DisplayName)
	assert.Equal(t, uint(3), joined.UserID)
}

func TestPartyHandler_AdvanceReadsChunkedBody(t *testing.T) {
	// Arrange
	f := newHandlerFixture(t)
	host := f.token(t, 100, "teacher")
	partyID := f.createParty(t)
	w := f.do(t, http.MethodPost, "/api/parties/"+partyID+"/start", host, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Тело без Content-Length, как у chunked запроса
	req := httptest.NewRequest(http.MethodPost, "/api/parties/"+partyID+"/advance",
		io.NopCloser(strings.NewReader(`{"expected_index":5}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+host)
	require.Equal(t, int64(-1), req.ContentLength)

	// Act
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	// Assert
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var adv dto.AdvanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &adv))
	assert.False(t, adv.Advanced, "expected_index из chunked тела учитывается")
	assert.Equal(t, 0, adv.Party.CurrentIndex)
}

func TestPartyHandler_EmptyOptionalBody(t *testing.T) {
	f := newHandlerFixture(t)
	partyID := f.createParty(t)

	req := httptest.NewRequest(http.MethodPost, "/api/parties/"+partyID+"/join", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, 3, "student"))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
