package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"lexdesk/internal/app"
	"lexdesk/internal/transport/http/middleware"
	"lexdesk/internal/transport/http/response"
)

func currentActor(c *gin.Context) (app.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return app.Actor{}, false
	}
	return actor, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func queryUint(c *gin.Context, key string) *uint {
	parsed, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil || parsed == 0 {
		return nil
	}
	v := uint(parsed)
	return &v
}

func paramUint(c *gin.Context, key string) (uint, bool) {
	parsed, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	replaced = strings.ReplaceAll(replaced, "\n", "\\n")
	return replaced
}
