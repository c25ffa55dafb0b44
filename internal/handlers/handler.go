package handlers

import (
	"airmonitor/internal/logger"
	"airmonitor/internal/metrics"
	"airmonitor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the config server HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	hub      *Hub
	log      *logger.Logger
	upgrader websocket.Upgrader
}

// Option configures a Handler.
type Option func(*Handler)

// WithAllowedOrigins restricts /ws upgrades to the given browser origins.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) { h.upgrader = newUpgrader(origins) }
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...Option) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{services: services, hub: NewHub(), log: log, upgrader: newUpgrader(nil)}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Hub returns the client registry used to push device notifications.
func (h *Handler) Hub() *Hub { return h.hub }

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// browsers cannot set headers on upgrade, so /ws also accepts ?token=
	router.GET("/ws", h.clientMiddleware, h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/pair", h.pair)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.clientMiddleware)
	{
		h.registerDeviceRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerDeviceRoutes(api *gin.RouterGroup) {
	api.GET("/config", h.getConfig)
	api.GET("/state", h.getState)
	// Body example: {"type":"sample_time","value":30}
	api.POST("/preferences", h.postPreference)
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
