// Package server wires the carpool HTTP routes onto a gin engine.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jezdimedoprace/carpool/pkg/carpool/auth"
	"github.com/jezdimedoprace/carpool/pkg/carpool/groups"
	"github.com/jezdimedoprace/carpool/pkg/carpool/middleware"
	"github.com/jezdimedoprace/carpool/pkg/carpool/rides"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/jezdimedoprace/carpool/api/swagger"
)

// Options tunes the router
type Options struct {
	Logger         *slog.Logger
	MaxOwnedGroups int
	// Clock overrides the ride week clock, nil means time.Now
	Clock func() time.Time
}

// New builds the engine with all routes registered.
func New(db *gorm.DB, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(logger), middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", middleware.MetricsHandler())
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	groupService := groups.NewService(db, opts.MaxOwnedGroups)
	rideService := rides.NewService(db)
	if opts.Clock != nil {
		rideService = rideService.WithClock(opts.Clock)
	}

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"service": "carpool",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Groups, members and rides (JWT required)
		groupsGroup := api.Group("/groups")
		groupsGroup.Use(auth.AuthMiddleware())

		groupsHandler := groups.NewHandler(groupService, rideService)
		groupsHandler.RegisterRoutes(groupsGroup)
		groupsHandler.RegisterMemberRoutes(groupsGroup)

		ridesHandler := rides.NewHandler(rideService, groupService)
		ridesHandler.RegisterRoutes(groupsGroup)
	}

	return r
}
