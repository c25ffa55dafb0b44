package handlers

import (
	"errors"
	"net/http"

	"airmonitor/internal/service"

	"github.com/gin-gonic/gin"
)

type pairRequest struct {
	PIN    string `json:"pin" binding:"required"`
	Client string `json:"client"`
}

// PairRequest is the Swagger model of the pairing payload.
type PairRequest struct {
	// PIN shown on the device
	PIN string `json:"pin" example:"0000"`
	// Free-form client label
	Client string `json:"client,omitempty" example:"phone"`
}

// bindJSONOrBadRequest binds the body into dst and writes a 400 JSON on failure.
// Returns false if the request was already handled.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// @Summary      Pair a client
// @Description  Exchanges the device PIN for a bearer token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      PairRequest  true  "Pairing payload"
// @Success      200   {object}  map[string]string  "token"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/pair [post]
func (h *Handler) pair(c *gin.Context) {
	var input pairRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	token, err := h.services.Pair(input.PIN, input.Client)
	if err != nil {
		h.log.Infow("pairing_failed", "client", input.Client, "remote", c.ClientIP(), "err", err)
		if errors.Is(err, service.ErrInvalidPIN) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid pin"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pairing failed"})
		return
	}

	h.log.Infow("client_paired", "client", input.Client, "remote", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"token": token})
}
