package middleware

import (
	"context"
	"errors"
	"strings"

	"remindly/model"
	"remindly/services"
	"remindly/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	callerKey = "caller"
	tokenKey  = "token"
)

type TokenParser interface {
	Parse(ctx context.Context, token string) (*model.Caller, error)
}

func AuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.Unauthorized(c, "Missing or invalid token")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		caller, err := tokens.Parse(c.Request.Context(), tokenString)
		if err != nil {
			utils.TrackAuthAttempt("failure", "token")
			switch {
			case errors.Is(err, jwt.ErrTokenExpired):
				utils.Unauthorized(c, "Token has expired")
			case errors.Is(err, services.ErrRevokedToken):
				utils.Unauthorized(c, "Token has been invalidated")
			case errors.Is(err, services.ErrInvalidToken):
				utils.Unauthorized(c, "Invalid token")
			default:
				utils.Error("token check failed", err, zap.String("path", c.FullPath()))
				utils.InternalError(c, "Failed to verify token")
			}
			c.Abort()
			return
		}

		c.Set("user_id", caller.UserID)
		c.Set("email", caller.Email)
		c.Set("admin", caller.Admin)
		c.Set(callerKey, *caller)
		c.Set(tokenKey, tokenString)

		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("admin") {
			utils.Forbidden(c, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CallerFrom returns the authenticated caller stored by AuthMiddleware.
func CallerFrom(c *gin.Context) (model.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return model.Caller{}, false
	}
	caller, ok := v.(model.Caller)
	return caller, ok
}

func TokenFrom(c *gin.Context) string {
	return c.GetString(tokenKey)
}
