package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/vocab-party-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newIdentityRouter(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	jwtService, err := auth.NewJWTService("test-secret")
	require.NoError(t, err)
	identity := NewIdentityMiddleware(jwtService, []string{"teacher", "admin"})

	router := gin.New()
	authed := router.Group("/", identity.RequireIdentity())
	authed.GET("/me", func(c *gin.Context) {
		userID, _ := UserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": c.GetString(ContextRole)})
	})
	authed.POST("/host", identity.HostOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, jwtService
}

func TestRequireIdentity(t *testing.T) {
	router, jwtService := newIdentityRouter(t)
	token, err := jwtService.GenerateToken(5, "Eva", "student", time.Hour)
	require.NoError(t, err)

	testCases := []struct {
		name       string
		target     string
		header     string
		wantStatus int
	}{
		{"bearer", "/me", "Bearer " + token, http.StatusOK},
		{"query token", "/me?token=" + token, "", http.StatusOK},
		{"без токена", "/me", "", http.StatusUnauthorized},
		{"неверный формат", "/me", "Token " + token, http.StatusUnauthorized},
		{"неверный токен", "/me", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestHostOnly(t *testing.T) {
	router, jwtService := newIdentityRouter(t)
	teacher, _ := jwtService.GenerateToken(1, "T", "Teacher", time.Hour)
	student, _ := jwtService.GenerateToken(2, "S", "student", time.Hour)

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/host", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, send(teacher), "роль сравнивается без учёта регистра")
	assert.Equal(t, http.StatusForbidden, send(student))
}

func TestExtractParams(t *testing.T) {
	router := gin.New()
	router.GET("/classes/:classId", ExtractUintParam("classId", "class_id"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetUint("class_id")})
	})
	router.GET("/parties/:id", ExtractPartyID("id", "party_id"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("party_id"))
	})

	testCases := []struct {
		target     string
		wantStatus int
	}{
		{"/classes/7", http.StatusOK},
		{"/classes/0", http.StatusBadRequest},
		{"/classes/abc", http.StatusBadRequest},
		{"/parties/3f0c7f4e-2a8e-4d43-9a3c-3d7d0f1b2a10", http.StatusOK},
		{"/parties/not-a-uuid", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.target, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.target, nil))
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestRateLimiter_FailOpen(t *testing.T) {
	// Arrange: недоступный Redis
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	defer client.Close()
	limiter := NewRateLimiter(client)

	router := gin.New()
	router.POST("/answers", limiter.Limit(DefaultAnswerRateLimitConfig(), KeyByUser), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	// Act
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/answers", nil))

	// Assert
	assert.Equal(t, http.StatusAccepted, w.Code, "при ошибке Redis запрос пропускается")
}

func TestKeyByUser(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.0.0.1:1234"

	assert.Equal(t, "ip:10.0.0.1", KeyByUser(c))

	c.Set(ContextUserID, uint(9))
	assert.Equal(t, "user:9", KeyByUser(c))
}
