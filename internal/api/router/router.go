// Package router assembles the gin engine: middleware chain, public and admin route groups,
// websocket endpoint, metrics and static uploads.
package router

import (
	"errors"
	"fmt"
	"time"

	"crackers-backend/internal/api/handler"
	"crackers-backend/internal/api/middleware"
	"crackers-backend/internal/auth"
	"crackers-backend/internal/metrics"
	"crackers-backend/internal/models"
	"crackers-backend/internal/service"
	"crackers-backend/internal/store"
	"crackers-backend/internal/upload"
	"crackers-backend/internal/validation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type Options struct {
	Origins     []string
	RateLimiter *middleware.RateLimiter // nil disables limiting
	UploadDir   string
	MaxUploadMB int
}

type Deps struct {
	Handler *handler.Handler
	Tokens  *auth.Issuer
	Users   store.Users
	Admins  store.Admins
	// Websocket is mounted at /ws when set.
	Websocket gin.HandlerFunc
}

// registerBinding adds the custom rules to gin's request validator.
func registerBinding() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding validator is not go-playground/validator")
	}
	return validation.Register(v)
}

func New(d Deps, opts Options) (*gin.Engine, error) {
	if err := registerBinding(); err != nil {
		return nil, fmt.Errorf("register binding rules: %w", err)
	}

	r := gin.New()
	if opts.MaxUploadMB > 0 {
		r.MaxMultipartMemory = int64(opts.MaxUploadMB) << 20
	}
	r.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery(), middleware.Metrics())
	r.Use(cors.New(corsConfig(opts.Origins)))

	r.GET("/metrics", metrics.Handler())
	r.GET("/api/health", d.Handler.Health)
	if d.Websocket != nil {
		r.GET("/ws", d.Websocket)
	}
	if opts.UploadDir != "" {
		r.Static(upload.URLPrefix, opts.UploadDir)
	}

	api := r.Group("/api")
	if opts.RateLimiter != nil {
		api.Use(opts.RateLimiter.Handler())
	}
	h := d.Handler

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)
	api.GET("/categories", h.ListCategories)
	api.GET("/categories/:slug", h.GetCategory)
	api.GET("/bundles", h.ListBundles(service.KindBundle))
	api.GET("/bundles/:id", h.GetBundle(service.KindBundle))
	api.GET("/giftboxes", h.ListBundles(service.KindGiftBox))
	api.GET("/giftboxes/:id", h.GetBundle(service.KindGiftBox))

	user := api.Group("", middleware.RequireUser(d.Tokens, d.Users))
	{
		user.GET("/users/profile", h.Profile)
		user.PUT("/users/profile", h.UpdateProfile)
		user.PUT("/users/password", h.ChangePassword)
		user.GET("/users/addresses", h.Addresses)
		user.POST("/users/addresses", h.AddAddress)
		user.PUT("/users/addresses/:id", h.UpdateAddress)
		user.DELETE("/users/addresses/:id", h.DeleteAddress)
		user.PATCH("/users/addresses/:id/default", h.SetDefaultAddress)

		user.POST("/products/:id/reviews", h.AddReview)

		user.GET("/cart", h.GetCart)
		user.POST("/cart/products", h.AddToCart(models.ItemProduct))
		user.POST("/cart/bundles", h.AddToCart(models.ItemBundle))
		user.POST("/cart/giftboxes", h.AddToCart(models.ItemGiftBox))
		user.PUT("/cart/:lineId", h.UpdateCartLine)
		user.DELETE("/cart/:lineId", h.RemoveCartLine)
		user.DELETE("/cart", h.ClearCart)

		user.POST("/orders", h.CreateOrder)
		user.GET("/orders", h.ListOrders)
		user.GET("/orders/:id", h.GetOrder)
		user.POST("/orders/:id/cancel", h.CancelOrder)
		user.POST("/orders/:id/payment-proof", h.UploadPaymentProof)
	}

	api.POST("/admin/auth/login", h.AdminLogin)
	admin := api.Group("/admin", middleware.RequireAdmin(d.Tokens, d.Admins))
	{
		admin.GET("/auth/me", h.AdminMe)
		admin.PUT("/auth/password", h.AdminChangePassword)

		admins := admin.Group("/admins", middleware.RequirePermission(auth.PermManageAdmins))
		admins.GET("", h.ListAdmins)
		admins.POST("", h.CreateAdmin)
		admins.PUT("/:id", h.UpdateAdmin)
		admins.DELETE("/:id", h.DeleteAdmin)

		products := admin.Group("/products", middleware.RequirePermission(auth.PermManageProducts))
		products.GET("", h.AdminListProducts)
		products.POST("", h.AdminCreateProduct)
		products.PUT("/:id", h.AdminUpdateProduct)
		products.DELETE("/:id", h.AdminDeleteProduct)
		products.PATCH("/:id/active", h.AdminSetProductActive)
		products.POST("/:id/images", h.AdminUploadProductImages)

		categories := admin.Group("/categories", middleware.RequirePermission(auth.PermManageCategories))
		categories.GET("", h.AdminListCategories)
		categories.POST("", h.AdminCreateCategory)
		categories.PUT("/:id", h.AdminUpdateCategory)
		categories.DELETE("/:id", h.AdminDeleteCategory)
		categories.POST("/:id/subcategories", h.AdminAddSubCategory)
		categories.DELETE("/:id/subcategories/:subId", h.AdminRemoveSubCategory)

		for path, kind := range map[string]service.BundleKind{"/bundles": service.KindBundle, "/giftboxes": service.KindGiftBox} {
			g := admin.Group(path, middleware.RequirePermission(auth.PermManageBundles))
			g.GET("", h.AdminListBundles(kind))
			g.POST("", h.AdminCreateBundle(kind))
			g.PUT("/:id", h.AdminUpdateBundle(kind))
			g.DELETE("/:id", h.AdminDeleteBundle(kind))
		}

		orders := admin.Group("/orders")
		orders.GET("", middleware.RequirePermission(auth.PermViewOrders), h.AdminListOrders)
		orders.GET("/export", middleware.RequirePermission(auth.PermExportOrders), h.AdminExportOrders)
		orders.GET("/stats", middleware.RequirePermission(auth.PermViewDashboard), h.AdminOrderStats)
		orders.GET("/:id", middleware.RequirePermission(auth.PermViewOrders), h.AdminGetOrder)
		orders.PATCH("/:id/status", middleware.RequirePermission(auth.PermManageOrders), h.AdminUpdateStatus)
		orders.PATCH("/:id/payment", middleware.RequirePermission(auth.PermVerifyPayments), h.AdminVerifyPayment)
	}

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// credentials cannot be combined with a literal "*"
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
