package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

// Context keys set by JWTMiddleware.
const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
	ctxRole   = "role"
)

// JWTMiddleware authenticates bearer tokens issued at login.
type JWTMiddleware struct {
	jwt *utils.JWTManager
}

func NewJWTMiddleware(jwt *utils.JWTManager) *JWTMiddleware {
	return &JWTMiddleware{jwt: jwt}
}

// Handle requires a valid token.
func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Falta el encabezado de autorización")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Encabezado de autorización inválido")
			c.Abort()
			return
		}

		claims, err := m.jwt.Validate(parts[1])
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token inválido o expirado")
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// RequireAdmin must run after Handle.
func (m *JWTMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != string(models.RoleAdmin) {
			utils.Error(c, http.StatusForbidden, "FORBIDDEN", "Se requiere acceso de administrador")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or 0.
func UserID(c *gin.Context) int {
	return c.GetInt(ctxUserID)
}

// UserEmail returns the authenticated user's e-mail.
func UserEmail(c *gin.Context) string {
	return c.GetString(ctxEmail)
}
