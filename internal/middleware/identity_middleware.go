package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/vocab-party-api/pkg/auth"
)

// Ключи контекста Gin, которые выставляет IdentityMiddleware
const (
	ContextUserID      = "user_id"
	ContextDisplayName = "display_name"
	ContextRole        = "role"
)

// TokenParser проверяет токен личности
type TokenParser interface {
	ParseToken(tokenString string) (*auth.IdentityClaims, error)
}

// IdentityMiddleware читает личность пользователя из токена внешнего сервиса авторизации
type IdentityMiddleware struct {
	parser    TokenParser
	hostRoles map[string]struct{}
}

// NewIdentityMiddleware создает middleware. hostRoles - роли, которым разрешено вести игру.
func NewIdentityMiddleware(parser TokenParser, hostRoles []string) *IdentityMiddleware {
	roles := make(map[string]struct{}, len(hostRoles))
	for _, r := range hostRoles {
		roles[strings.ToLower(r)] = struct{}{}
	}
	return &IdentityMiddleware{parser: parser, hostRoles: roles}
}

// RequireIdentity проверяет токен из заголовка Authorization: Bearer {token}
// или из параметра ?token= (для WebSocket, где заголовок выставить нельзя).
func (m *IdentityMiddleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "error_type": "token_format"})
				return
			}
			token = parts[1]
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
			return
		}

		claims, err := m.parser.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextDisplayName, claims.DisplayName)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// HostOnly пропускает только ведущих (учитель, администратор). Применяется ПОСЛЕ RequireIdentity.
func (m *IdentityMiddleware) HostOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextUserID); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !m.IsHostRole(c.GetString(ContextRole)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Host rights required", "error_type": "forbidden"})
			return
		}
		c.Next()
	}
}

// IsHostRole - может ли роль вести игру
func (m *IdentityMiddleware) IsHostRole(role string) bool {
	_, ok := m.hostRoles[strings.ToLower(role)]
	return ok
}

// UserIDFromContext возвращает ID пользователя, выставленный RequireIdentity
func UserIDFromContext(c *gin.Context) (uint, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
