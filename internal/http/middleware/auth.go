package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	accessrepo "github.com/yungbote/lexi-backend/internal/data/repos/access"
	"github.com/yungbote/lexi-backend/internal/pkg/dbctx"
	"github.com/yungbote/lexi-backend/internal/platform/ctxutil"
	"github.com/yungbote/lexi-backend/internal/platform/jwtauth"
	"github.com/yungbote/lexi-backend/internal/platform/logger"
)

type AuthMiddleware struct {
	log        *logger.Logger
	secret     []byte
	principals accessrepo.PrincipalRepo
}

func NewAuthMiddleware(log *logger.Logger, secret []byte, principals accessrepo.PrincipalRepo) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLogger, secret: secret, principals: principals}
}

// RequireAuth resolves the bearer token to a stored principal and attaches
// its id and role to the request context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			abortAuth(c, http.StatusUnauthorized, "missing or invalid token", "unauthorized")
			return
		}
		sub, err := jwtauth.Subject(tokenString, am.secret)
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, "invalid token", "unauthorized")
			return
		}
		principalID, err := uuid.Parse(sub)
		if err != nil {
			abortAuth(c, http.StatusUnauthorized, "invalid token subject", "unauthorized")
			return
		}
		ctx := c.Request.Context()
		principal, err := am.principals.GetByID(dbctx.Context{Ctx: ctx}, principalID)
		if err != nil {
			am.log.Error("Principal lookup failed", "principal_id", principalID, "error", err)
			abortAuth(c, http.StatusInternalServerError, "principal lookup failed", "internal")
			return
		}
		if principal == nil {
			abortAuth(c, http.StatusForbidden, "forbidden", "forbidden")
			return
		}
		ctx = ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
			PrincipalID: principal.ID,
			Role:        principal.Role,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("principal_id", principal.ID.String())
		c.Next()
	}
}

func abortAuth(c *gin.Context, status int, msg, code string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"message": msg, "code": code},
	})
}

func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
