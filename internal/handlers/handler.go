package handlers

import (
	"alpha_innotec_planner/internal/logger"
	"alpha_innotec_planner/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.health)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// State stream over a WebSocket upgrade on the same port.
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.bearerMiddleware)
	{
		h.registerPlannerRoutes(api)
		h.registerEventRoutes(api)
	}
}

func (h *Handler) registerPlannerRoutes(api *gin.RouterGroup) {
	api.GET("/state", h.getState)
	api.GET("/plan", h.getPlan)
	api.POST("/run", h.triggerRun)
}

func (h *Handler) registerEventRoutes(api *gin.RouterGroup) {
	events := api.Group("/events")
	{
		events.GET("/", h.getEvents)
	}
}
