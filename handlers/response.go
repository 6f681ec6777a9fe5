package handlers

import (
	"log/slog"
	"net/http"

	"ecommerce-backend/internal/auth"
	"ecommerce-backend/pkg/ctxmanage"
	"ecommerce-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respond(c *gin.Context, code int, message string, data any) {
	c.JSON(code, APIResponse{Status: true, Message: message, Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, APIResponse{Status: false, Message: message, Data: nil})
}

// currentClaims pulls the verified claims placed by the authentication
// middleware; a miss means the route was wired without it.
func currentClaims(c *gin.Context) (auth.Claims, bool) {
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		traceId := ctxmanage.GetTraceIdOfRequest(c)
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	return claims, ok
}
