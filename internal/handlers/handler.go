package handlers

import (
	"piston_control/internal/logger"
	"piston_control/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services   *service.Service
	log        *logger.Logger
	uploadsDir string
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, uploadsDir string, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log, uploadsDir: uploadsDir}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if h.uploadsDir != "" {
		router.Static(service.AvatarURLPrefix, h.uploadsDir)
	}

	api := router.Group("/api")
	api.GET("/health", h.health)
	h.registerAuthRoutes(api)

	protected := api.Group("", h.userIdMiddleware)
	{
		h.registerUserRoutes(protected)
		h.registerDeviceRoutes(protected)
		h.registerScheduleRoutes(protected)
		protected.GET("/telemetry", h.getTelemetry)
		// Realtime push channel, bearer-authenticated like the REST calls
		protected.GET("/ws", h.wsConnect)
	}

	return router
}

func (h *Handler) registerAuthRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
	}
}

func (h *Handler) registerUserRoutes(api *gin.RouterGroup) {
	user := api.Group("/user")
	{
		user.GET("/profile", h.getProfile)
		user.PUT("/profile", h.updateProfile)
		user.PUT("/preferences", h.updatePreferences)
		user.POST("/avatar", h.uploadAvatar)
		user.DELETE("/avatar", h.deleteAvatar)
	}
}

func (h *Handler) registerDeviceRoutes(api *gin.RouterGroup) {
	devices := api.Group("/devices")
	{
		devices.GET("", h.listDevices)
		devices.GET("/:id", h.getDevice)
		// Body example: {"action":"activate"}
		devices.POST("/:id/pistons/:number", h.controlPiston)
		// Emulates a controller going on- or offline. Body: {"status":"offline"}
		devices.PUT("/:id/status", h.setDeviceStatus)
	}
}

func (h *Handler) registerScheduleRoutes(api *gin.RouterGroup) {
	schedules := api.Group("/schedules")
	{
		schedules.POST("", h.createSchedule)
		schedules.GET("", h.listSchedules)
		schedules.GET("/:id", h.getSchedule)
		schedules.PUT("/:id", h.updateSchedule)
		schedules.DELETE("/:id", h.deleteSchedule)
	}
}
