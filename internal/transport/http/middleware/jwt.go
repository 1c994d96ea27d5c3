package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lexdesk/internal/app"
	"lexdesk/internal/model"
	"lexdesk/internal/pkg/jwtutil"
	"lexdesk/internal/transport/http/response"
)

const ContextActorKey = "actor"

// AuthJWT accepts the session token from the Authorization header or, for
// browser clients, from the session cookie.
func AuthJWT(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c, cookieName)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing authorization")
			return
		}

		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil || claims.UserID == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired token")
			return
		}

		c.Set(ContextActorKey, app.Actor{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   model.Role(claims.Role),
			Plan:   model.PlanType(claims.Plan),
		})
		c.Next()
	}
}

func extractToken(c *gin.Context, cookieName string) (string, bool) {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			return "", false
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
		return token, token != ""
	}
	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			return token, true
		}
	}
	return "", false
}

// RequireRole must run after AuthJWT.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, response.CodeForbidden, "forbidden")
	}
}

func ActorFrom(c *gin.Context) (app.Actor, bool) {
	v, exists := c.Get(ContextActorKey)
	if !exists {
		return app.Actor{}, false
	}
	actor, ok := v.(app.Actor)
	return actor, ok && actor.UserID != ""
}
