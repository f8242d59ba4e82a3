// Package server wires repositories, services and handlers into a gin engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"cinema/internal/acl"
	"cinema/internal/auth"
	"cinema/internal/config"
	"cinema/internal/handler"
	"cinema/internal/middleware"
	"cinema/internal/permission"
	"cinema/internal/repository"
	"cinema/internal/service"
	"cinema/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// App holds the wired application
type App struct {
	Router *gin.Engine
	Hub    *websocket.Hub
	Users  service.UserService

	log *slog.Logger
}

// New wires the application on top of db. enforcer may be nil, in which case
// a casbin enforcer backed by db is created and seeded.
func New(cfg *config.Config, db *gorm.DB, enforcer *permission.Enforcer, log *slog.Logger) (*App, error) {
	if enforcer == nil {
		var err error
		enforcer, err = permission.NewEnforcer(db)
		if err != nil {
			return nil, err
		}
	}
	if err := enforcer.Seed(permission.DefaultPolicies); err != nil {
		return nil, fmt.Errorf("failed to seed route permissions: %w", err)
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	policies := acl.DefaultRegistry()

	// Set up WebSocket Hub
	hub := websocket.NewHub(log)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	movieRepo := repository.NewMovieRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditService := service.NewAuditService(auditRepo)
	userService := service.NewUserService(userRepo, tokens, auditService)
	allocator := service.NewAllocator(ticketRepo, txManager, cfg.Booking.AllocationMaxRetries)
	redeemer := service.NewRedeemer(ticketRepo, txManager)
	movieService := service.NewMovieService(movieRepo, ticketRepo, policies, auditService, txManager)
	bookingService := service.NewBookingService(userRepo, ticketRepo, movieRepo, allocator, redeemer, policies, auditService, hub)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, auditService, middleware.CookieOptions{
		Secure: cfg.HTTP.Release(),
		TTL:    cfg.Auth.TokenTTL,
	})
	movieHandler := handler.NewMovieHandler(movieService, bookingService, auditService)
	auditHandler := handler.NewAuditHandler(auditService)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestContext(log))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(hub, c, tokens)
	})

	// API Routing
	authn := middleware.Authenticate(tokens)
	userHandler.RegisterRoutes(router.Group(""), authn, enforcer)
	movieHandler.RegisterRoutes(router.Group(""), authn, enforcer)
	auditHandler.RegisterRoutes(router.Group(""), authn, enforcer)

	return &App{Router: router, Hub: hub, Users: userService, log: log}, nil
}

// EnsureDefaultAdmin creates the bootstrap ADMIN account when a password is configured
func (a *App) EnsureDefaultAdmin(ctx context.Context, cfg config.AuthConfig) error {
	if cfg.DefaultAdminPassword == "" {
		return nil
	}
	created, err := a.Users.EnsureAdmin(ctx, cfg.DefaultAdminUsername, cfg.DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to create default admin: %w", err)
	}
	if created {
		a.log.Info("default admin created", "username", cfg.DefaultAdminUsername)
	}
	return nil
}
