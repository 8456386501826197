package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reservations/internal/app/policies"
	"reservations/internal/infra/cache"
	"reservations/internal/infra/config"
	"reservations/internal/infra/obs"
)

type Handlers struct {
	Booking        *BookingHandler
	Availability   *AvailabilityHandler
	Listing        *ListingHandler
	HostListing    *HostListingHandler
	Reviews        *ReviewsHandler
	AuthMiddleware gin.HandlerFunc
	// RateLimit guards /api/v1 only; health checks and metrics are exempt.
	RateLimit gin.HandlerFunc
	// Cache is optional; without it reads always hit the handlers.
	Cache *cache.Store
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "Cache-Control"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
			cacheHeader,
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	cached := func(bucket policies.CacheBucket, ttl time.Duration) gin.HandlerFunc {
		return ResponseCache(h.Cache, bucket, ttl, obsMW.Logger)
	}

	api := router.Group("/api/v1")
	if h.RateLimit != nil {
		api.Use(h.RateLimit)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/me", h.Booking.ListMine)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
	}
	if h.Listing != nil {
		api.GET("/listings", cached(policies.BucketListings, cfg.CacheCatalogTTL), h.Listing.Catalog)
		api.GET("/listings/:id", cached(policies.BucketListings, cfg.CacheListingTTL), h.Listing.Get)
	}
	if h.Availability != nil {
		api.GET("/listings/:id/availability", cached(policies.BucketBookings, cfg.CacheAvailabilityTTL), h.Availability.Booked)
	}
	if h.Reviews != nil {
		api.GET("/listings/:id/reviews", cached(policies.BucketReviews, cfg.CacheReviewTTL), h.Reviews.ListByListing)
		api.POST("/reviews/booking", h.Reviews.Submit)
		api.DELETE("/reviews/booking/:bookingId", h.Reviews.Delete)
	}
	if h.HostListing != nil {
		hostGroup := api.Group("/host/listings")
		hostGroup.GET("", h.HostListing.List)
		hostGroup.POST("", h.HostListing.Create)
		hostGroup.PATCH("/:id", h.HostListing.Update)
		hostGroup.POST("/:id/activate", h.HostListing.Activate)
		hostGroup.POST("/:id/deactivate", h.HostListing.Deactivate)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
