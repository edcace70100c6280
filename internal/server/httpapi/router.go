// Package httpapi is the HTTP boundary of the account service, built on gin.
package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/standard/dreamcalendar/internal/logging"
	"github.com/standard/dreamcalendar/internal/server/services"
)

// UserService is what the handlers need from services.UserService.
type UserService interface {
	Create(ctx context.Context, in services.UserDTO) (bool, error)
	LogInByEmailPassword(ctx context.Context, c services.Credentials) (*services.TokenPair, error)
	LogInByAccessToken(ctx context.Context, token string) (services.AuthStatus, error)
	UpdateAccessToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	FindAll(ctx context.Context) ([]services.UserDTO, error)
	FindByID(ctx context.Context, id int64) (*services.UserDTO, error)
	FindByEmail(ctx context.Context, email string) (*services.UserDTO, error)
	FindUsersByUsername(ctx context.Context, name string) ([]services.UserDTO, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// ReadinessFunc reports whether dependencies (the database) are reachable.
type ReadinessFunc func(ctx context.Context) error

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(svc UserService, log logging.Logger, ready ReadinessFunc) *gin.Engine {
	log = log.With("module", "http_api")
	h := &Handler{service: svc, logger: log}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/livez", livez)
	r.GET("/healthz", healthz(ready))

	api := r.Group("/api")
	{
		api.POST("/users", h.CreateUser)
		api.GET("/users", h.ListUsers)
		api.GET("/users/search", h.SearchUsers)
		api.GET("/users/by-email", h.GetUserByEmail)
		api.GET("/users/:id", h.GetUser)
		api.DELETE("/users/:id", h.DeleteUser)

		api.POST("/auth/login", h.Login)
		api.POST("/auth/validate", h.Validate)
		api.POST("/auth/refresh", h.Refresh)
	}

	return r
}

func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if c.Writer.Status() >= 500 {
			log.Warn(c.Request.Context(), "http request", args...)
			return
		}
		log.Info(c.Request.Context(), "http request", args...)
	}
}
