package handlers

import (
	"errors"
	"io"
	"net/http"

	"airmonitor/internal/device"
	"airmonitor/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	statusOK     = "ok"
	statusQueued = "queued"

	errGetState     = "failed to load state"
	errQueueFull    = "device busy, retry later"
	errSubmitFailed = "failed to queue preference"

	maxPreferenceBody = 1 << 12
)

// logAndJSONError logs err under logKey and writes userMsg with httpCode.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// PreferenceRequest is the Swagger model of a preference change.
type PreferenceRequest struct {
	// One of wifi, brightness, colors_inverted, sample_time, calibration
	Type string `json:"type" example:"sample_time"`
	// Required for wifi and colors_inverted
	Enabled *bool `json:"enabled,omitempty"`
	// Required for brightness and sample_time
	Value *int `json:"value,omitempty" example:"30"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get device configuration
// @Tags         device
// @Produce      json
// @Success      200  {object}  models.DeviceConfiguration
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/config [get]
// @Security     BearerAuth
func (h *Handler) getConfig(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "config_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, st.Config)
}

// @Summary      Get device state
// @Tags         device
// @Produce      json
// @Success      200  {object}  models.DeviceState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "state_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Change a preference
// @Description  The change is queued and applied by the device at its next loop iteration.
// @Tags         device
// @Accept       json
// @Produce      json
// @Param        body  body      PreferenceRequest  true  "Preference change"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/preferences [post]
// @Security     BearerAuth
func (h *Handler) postPreference(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPreferenceBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	change, err := models.DecodePreferenceChange(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, _ := c.Get(ctxClient)
	if code, msg := h.submit(change); code != http.StatusAccepted {
		c.JSON(code, gin.H{"error": msg})
		return
	}
	h.log.Infow("preference_queued", "kind", change.Kind(), "client", client)
	c.JSON(http.StatusAccepted, gin.H{"status": statusQueued, "kind": change.Kind()})
}

// submit hands change to the device and maps the outcome to an HTTP status.
func (h *Handler) submit(change models.PreferenceChange) (int, string) {
	err := h.services.Preferences.Submit(change)
	switch {
	case err == nil:
		return http.StatusAccepted, ""
	case errors.Is(err, device.ErrQueueFull):
		h.log.Warnw("preference_queue_full", "kind", change.Kind())
		return http.StatusServiceUnavailable, errQueueFull
	case errors.Is(err, models.ErrInvalidPreference):
		return http.StatusBadRequest, err.Error()
	default:
		h.log.Errorw("preference_submit_failed", "kind", change.Kind(), "err", err)
		return http.StatusInternalServerError, errSubmitFailed
	}
}
