package http

import (
	"net/http"
	"time"

	"farmlok/internal/auth"
	"farmlok/internal/cache"
	"farmlok/internal/ratelimit"
	"farmlok/internal/weather"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	healthStatusOK        = "ok"
	healthStatusUnhealthy = "unhealthy"
)

type HealthChecker interface {
	Health() error
}

// Deps bundles everything the router wires together.
type Deps struct {
	Products        *Handler
	Auth            *auth.Handler
	Users           *auth.Store
	Weather         *weather.Handler
	Cache           cache.ResponseStore
	Limiter         *ratelimit.Limiter
	Storage         HealthChecker
	JWTSecret       string
	ProductCacheTTL time.Duration
	WeatherCacheTTL time.Duration
}

func RegisterRoutes(router *gin.Engine, deps Deps) {
	router.GET("/", welcome)

	authGroup := router.Group("/auth")
	{
		authGroup.GET("/google", deps.Auth.GoogleLogin)
		authGroup.GET("/google/callback", deps.Auth.GoogleCallback)
		authGroup.GET("/me", auth.Protect(deps.JWTSecret, deps.Users), deps.Auth.GetMe)
	}

	api := router.Group("/api", deps.Limiter.Middleware())

	products := api.Group("/v1/products")
	{
		products.GET("", cache.Responses(deps.Cache, deps.ProductCacheTTL), deps.Products.ListProducts)
		products.POST("", auth.Protect(deps.JWTSecret, deps.Users), deps.Products.CreateProduct)
		products.GET("/:id", deps.Products.GetProduct)
		products.PUT("/:id", auth.Protect(deps.JWTSecret, deps.Users), deps.Products.UpdateProduct)
		products.DELETE("/:id", auth.Protect(deps.JWTSecret, deps.Users), deps.Products.DeleteProduct)
	}

	api.GET("/v1/weather", cache.Responses(deps.Cache, deps.WeatherCacheTTL), deps.Weather.Get)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := deps.Storage.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": healthStatusUnhealthy})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": healthStatusOK})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "fail",
			"message": "can't find " + c.Request.URL.Path + " on this server",
		})
	})
}

func welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Welcome to the Farmlok Backend API",
		"endpoints": gin.H{
			"auth": gin.H{
				"login": "/auth/google",
				"me":    "/auth/me",
			},
			"products": gin.H{
				"all":    "/api/v1/products",
				"single": "/api/v1/products/:id",
			},
			"weather": gin.H{
				"search": "/api/v1/weather?city={cityName}",
			},
			"system": gin.H{
				"health": "/healthz",
			},
		},
	})
}
