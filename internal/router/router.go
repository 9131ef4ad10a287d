// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/timeslot-reservation/internal/config"
	"github.com/iliyamo/timeslot-reservation/internal/handler"
	"github.com/iliyamo/timeslot-reservation/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints. Register,
// login, refresh and logout work without an existing session; /v1/me
// sits behind JWT auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterTimeSlots registers the browsing and reservation endpoints.
// The listing is public and may sit behind the response cache; the
// reservation endpoints require a valid access token, and the reserve
// call is additionally rate limited.
func RegisterTimeSlots(e *echo.Echo, h *handler.TimeSlotHandler, jwtSecret string, rdb *redis.Client) {
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	e.GET("/v1/timeslots", h.ListAvailable, middleware.NewRedisCache(cacheCfg, rdb))

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("CUSTOMER", "ADMIN"))
	auth.GET("/my-timeslots", h.MySlots)
	auth.POST("/timeslots/:id/reserve", h.Reserve, middleware.NewTokenBucket(rlCfg, rdb))
}

// RegisterAdmin registers the administrative timeslot management
// endpoints, restricted to the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))
	g.POST("/timeslots", h.Create)
	g.GET("/timeslots", h.List)
	g.PUT("/timeslots/:id", h.Update)
	g.DELETE("/timeslots/:id", h.Delete)
}
