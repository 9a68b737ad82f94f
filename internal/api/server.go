// Package api exposes the storefront services over HTTP with gin.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"storefront-backend/internal/service"
	"storefront-backend/internal/uploads"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps is everything the router needs. Ready is optional and backs
// /healthz when set.
type Deps struct {
	Auth        *service.AuthService
	Products    *service.ProductService
	Orders      *service.OrderService
	Carts       *service.CartService
	Uploads     *uploads.Storage
	Log         *slog.Logger
	CORSOrigins []string
	Ready       func(context.Context) error
}

type Server struct {
	auth     *service.AuthService
	products *service.ProductService
	orders   *service.OrderService
	carts    *service.CartService
	uploads  *uploads.Storage
	log      *slog.Logger
	ready    func(context.Context) error
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func NewRouter(d Deps) *gin.Engine {
	s := &Server{
		auth:     d.Auth,
		products: d.Products,
		orders:   d.Orders,
		carts:    d.Carts,
		uploads:  d.Uploads,
		log:      d.Log,
		ready:    d.Ready,
	}

	r := gin.New()
	r.Use(requestLogger(d.Log), gin.Recovery())
	r.Use(cors.New(corsConfig(d.CORSOrigins)))
	r.Static("/uploads", d.Uploads.Dir())

	r.GET("/healthz", s.health)

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", s.register)
		authRoutes.POST("/login", s.login)
		authRoutes.GET("/me", s.requireAuth, s.me)
	}

	users := api.Group("/users", s.requireAuth)
	{
		users.GET("/profile", s.getProfile)
		users.PUT("/profile", s.updateProfile)
	}

	products := api.Group("/products")
	{
		products.GET("", s.listProducts)
		products.GET("/:id", s.getProduct)
		products.POST("", s.requireAuth, s.createProduct)
		products.PUT("/:id", s.requireAuth, s.updateProduct)
		products.DELETE("/:id", s.requireAuth, s.deleteProduct)
	}

	orders := api.Group("/orders", s.requireAuth)
	{
		orders.POST("", s.createOrder)
		orders.GET("", s.listAllOrders)
		orders.GET("/myorders", s.myOrders)
		orders.GET("/:id", s.getOrder)
		orders.PUT("/:id/cancel", s.cancelOrder)
		orders.PUT("/:id/deliver", s.deliverOrder)
	}

	cart := api.Group("/cart", s.requireAuth)
	{
		cart.GET("", s.getCart)
		cart.POST("", s.addToCart)
		cart.DELETE("", s.clearCart)
		cart.PUT("/:productId", s.updateCart)
		cart.DELETE("/:productId", s.removeCartItem)
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.log.Error("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
