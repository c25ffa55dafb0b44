package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxClient = "client"

func (h *Handler) clientMiddleware(c *gin.Context) {
	token, msg := bearerToken(c)
	if msg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}

	client, err := h.services.ParseToken(token)
	if err != nil {
		h.log.Debugw("token_rejected", "err", err, "remote", c.ClientIP())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(ctxClient, client)
	c.Next()
}

// bearerToken reads the Authorization header, falling back to the token query
// parameter on WebSocket upgrades. msg is the rejection reason when non-empty.
func bearerToken(c *gin.Context) (token, msg string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if q := c.Query("token"); q != "" && c.IsWebsocket() {
			return q, ""
		}
		return "", "missing Authorization header"
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "invalid Authorization header format"
	}
	return parts[1], ""
}
