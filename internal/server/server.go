package server

import (
	"context"
	"log/slog"
	"net/http"

	"furnish-backend/internal/config"
	"furnish-backend/internal/usecase"

	"github.com/gin-gonic/gin"
)

// Services are the use cases the HTTP layer exposes.
type Services struct {
	Auth     *usecase.AuthService
	Accounts *usecase.AccountService
	Catalog  *usecase.CatalogService
	Orders   *usecase.OrderService
	Coupons  *usecase.CouponService
	Shipping *usecase.ShippingService
	Payments *usecase.PaymentService
	// Ping checks the database for the health endpoint.
	Ping func(ctx context.Context) error
}

type Server struct {
	cfg    config.Config
	svc    Services
	log    *slog.Logger
	engine *gin.Engine
}

func New(cfg config.Config, svc Services, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{cfg: cfg, svc: svc, log: log, engine: gin.New()}
	s.engine.HandleMethodNotAllowed = true
	s.engine.Use(s.requestID, s.logRequests, s.recoverPanics, securityHeaders, s.cors, s.authenticate)
	s.engine.NoRoute(func(c *gin.Context) { s.err(c, http.StatusNotFound, "not_found", "route not found") })
	s.engine.NoMethod(func(c *gin.Context) { s.err(c, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed") })
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", s.health)

	api := r.Group("/api")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)
	api.GET("/auth/me", requireUser, s.me)

	api.GET("/products", s.listProducts)
	api.GET("/products/featured", s.featured)
	api.GET("/products/:slug", s.productBySlug)
	api.GET("/categories", s.categories)
	api.GET("/campaigns", s.campaigns)
	api.GET("/loyalty/tiers", s.loyaltyTiers)

	api.GET("/shipping/rules", s.shippingRules)
	api.GET("/shipping/estimate", s.shippingEstimate)
	api.GET("/payments/methods", s.paymentMethods)
	api.GET("/coupons/validate", s.validateCoupon)

	api.POST("/orders", s.createOrder)
	api.GET("/orders/me", requireUser, s.myOrders)
	api.GET("/orders/:id", s.getOrder)

	api.POST("/payments/e2/c2b", s.c2b)
	api.POST("/payments/e2/webhook", s.webhook)

	acct := api.Group("/account", requireUser)
	acct.GET("/addresses", s.addresses)
	acct.POST("/addresses", s.addAddress)
	acct.DELETE("/addresses/:id", s.deleteAddress)
	acct.GET("/prefs", s.prefs)
	acct.PUT("/prefs", s.savePrefs)

	adm := api.Group("/admin", requireAdmin)
	adm.GET("/products", s.adminProducts)
	adm.POST("/products", s.createProduct)
	adm.PUT("/products/:id", s.updateProduct)
	adm.DELETE("/products/:id", s.deleteProduct)
	adm.POST("/categories", s.createCategory)
	adm.PUT("/categories/reorder", s.reorderCategories)
	adm.PUT("/categories/:id", s.updateCategory)
	adm.DELETE("/categories/:id", s.deleteCategory)
	adm.PUT("/featured", s.setFeatured)
	adm.GET("/campaigns", s.adminCampaigns)
	adm.POST("/campaigns", s.createCampaign)
	adm.DELETE("/campaigns/:id", s.deleteCampaign)
	adm.POST("/loyalty/tiers", s.createLoyaltyTier)
	adm.DELETE("/loyalty/tiers/:id", s.deleteLoyaltyTier)

	adm.GET("/orders", s.adminOrders)
	adm.PATCH("/orders/:id", s.updateOrder)
	adm.GET("/stats", s.stats)

	adm.GET("/coupons", s.coupons)
	adm.POST("/coupons", s.createCoupon)
	adm.PUT("/coupons/:id", s.updateCoupon)
	adm.DELETE("/coupons/:id", s.deleteCoupon)

	adm.GET("/payments/methods", s.adminPaymentMethods)
	adm.POST("/payments/methods", s.upsertPaymentMethod)
	adm.PUT("/payments/methods/:id", s.updatePaymentMethod)
	adm.DELETE("/payments/methods/:id", s.deletePaymentMethod)
	adm.GET("/payments/e2/wallets", s.gatewayWallets)
	adm.GET("/payments/e2/transactions", s.gatewayPayments)

	adm.GET("/shipping/rules", s.adminShippingRules)
	adm.POST("/shipping/rules", s.createShippingRule)
	adm.PUT("/shipping/rules/:id", s.updateShippingRule)
	adm.DELETE("/shipping/rules/:id", s.deleteShippingRule)
}

func (s *Server) health(c *gin.Context) {
	if s.svc.Ping != nil {
		if err := s.svc.Ping(c.Request.Context()); err != nil {
			s.log.Error("health check", "err", err)
			s.err(c, http.StatusServiceUnavailable, "unavailable", "database unreachable")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
