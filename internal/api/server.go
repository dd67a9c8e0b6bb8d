// Package api assembles the HTTP tier: middleware, the /api/v1 routes, and
// the operational endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"navigader/internal/api/handlers"
	"navigader/internal/api/middleware"
	"navigader/internal/config"
	"navigader/internal/metrics"
	"navigader/internal/objstore"
	"navigader/internal/store"
)

// Server wires the HTTP surface over the shared backends.
type Server struct {
	cfg     *config.Config
	store   *store.Store
	objects *objstore.Store
	metrics *metrics.Metrics
}

// New creates a server over the given backends.
func New(cfg *config.Config, s *store.Store, objects *objstore.Store, m *metrics.Metrics) *Server {
	return &Server{cfg: cfg, store: s, objects: objects, metrics: m}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	if s.cfg.DeployEnv != config.EnvDev {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	if s.cfg.TLSRedirect {
		router.Use(middleware.TLSRedirect())
	}
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(s.metrics))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(s.cfg.CORSOrigins))

	groupHandler := handlers.NewGroupHandler(s.store, s.objects, s.cfg.Queue)
	meterHandler := handlers.NewMeterHandler(s.store)
	ratePlanHandler := handlers.NewRatePlanHandler(s.store)
	scenarioHandler := handlers.NewScenarioHandler(s.store, s.objects, s.cfg.Queue)

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1", middleware.Auth(s.cfg.SecretKey))
	{
		api.POST("/meter-groups", groupHandler.Upload)
		api.GET("/meter-groups", groupHandler.List)
		api.GET("/meter-groups/:id", groupHandler.Get)
		api.DELETE("/meter-groups/:id", groupHandler.Delete)
		api.GET("/meter-groups/:id/meters", meterHandler.List)
		api.GET("/meter-groups/:id/clusters", meterHandler.Clusters)

		api.GET("/meters/:id", meterHandler.Get)

		api.POST("/rate-plans", ratePlanHandler.Upload)
		api.GET("/rate-plans", ratePlanHandler.List)

		api.POST("/scenarios", scenarioHandler.Create)
		api.GET("/scenarios", scenarioHandler.List)
		api.GET("/scenarios/:id", scenarioHandler.Get)
		api.GET("/scenarios/:id/ledger", scenarioHandler.Ledger)
	}

	// Operational endpoints live under the configurable admin prefix.
	admin := router.Group("/"+s.cfg.AdminPath, middleware.Auth(s.cfg.SecretKey))
	{
		admin.GET("/queue", s.queueDepth)
	}

	return router
}

// health reports process liveness and database reachability.
func (s *Server) health(c *gin.Context) {
	if err := s.store.DB().PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "env": s.cfg.DeployEnv})
}

func (s *Server) queueDepth(c *gin.Context) {
	depth, err := s.store.QueueDepth(c.Request.Context(), s.cfg.Queue.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"queue":   s.cfg.Queue.Name,
		"pending": depth,
		"sampled": time.Now().UTC(),
	})
}
