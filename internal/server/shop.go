package server

import (
	"io"
	"net/http"
	"strconv"

	"furnish-backend/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const maxWebhookBody = 1 << 20

func (s *Server) createOrder(c *gin.Context) {
	var in usecase.CreateOrderInput
	if !s.bind(c, &in) {
		return
	}
	o, err := s.svc.Orders.CreateOrder(c.Request.Context(), in, identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *Server) getOrder(c *gin.Context) {
	id, ok := s.paramID(c)
	if !ok {
		return
	}
	o, err := s.svc.Orders.GetOrder(c.Request.Context(), id, identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) myOrders(c *gin.Context) {
	out, err := s.svc.Orders.ListMine(c.Request.Context(), identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if out == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) shippingRules(c *gin.Context) {
	out, err := s.svc.Shipping.Rules(c.Request.Context(), true)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type estimateQuery struct {
	Method   string `form:"method" binding:"required"`
	WeightKg string `form:"weightKg"`
}

func (s *Server) shippingEstimate(c *gin.Context) {
	var q estimateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abort(c, http.StatusBadRequest, "validation_error", "validation failed", []usecase.FieldError{{Field: "method", Message: "is required"}})
		return
	}
	weight := decimal.Zero
	if q.WeightKg != "" {
		w, err := decimal.NewFromString(q.WeightKg)
		if err != nil || w.IsNegative() {
			abort(c, http.StatusBadRequest, "validation_error", "validation failed", []usecase.FieldError{{Field: "weightKg", Message: "must be a non-negative number"}})
			return
		}
		weight = w
	}
	est, err := s.svc.Shipping.Estimate(c.Request.Context(), q.Method, weight)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

func (s *Server) paymentMethods(c *gin.Context) {
	out, err := s.svc.Payments.Methods(c.Request.Context(), true)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// validateCoupon always answers 200; anything unusable is {"valid":false}.
func (s *Server) validateCoupon(c *gin.Context) {
	subtotal, err := decimal.NewFromString(c.Query("subtotal"))
	if err != nil {
		c.JSON(http.StatusOK, usecase.CouponResult{})
		return
	}
	res, err := s.svc.Coupons.Validate(c.Request.Context(), c.Query("code"), subtotal)
	if err != nil {
		s.log.Error("coupon validate", "err", err, "request_id", c.GetString(ctxRequestID))
		c.JSON(http.StatusOK, usecase.CouponResult{})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) c2b(c *gin.Context) {
	var in usecase.C2BInput
	if !s.bind(c, &in) {
		return
	}
	res, err := s.svc.Payments.InitiateC2B(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// webhook acknowledges every delivery except one with a bad shared secret,
// so the gateway does not retry payloads the shop cannot use.
func (s *Server) webhook(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		s.log.Warn("webhook body", "err", err)
	}
	res, err := s.svc.Payments.HandleWebhook(c.Request.Context(), c.GetHeader("X-Webhook-Token"), raw)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": res.Duplicate})
}

func (s *Server) listProducts(c *gin.Context) {
	s.products(c, false)
}

func (s *Server) adminProducts(c *gin.Context) {
	s.products(c, true)
}

func (s *Server) products(c *gin.Context, includeInactive bool) {
	var q usecase.ProductQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abort(c, http.StatusBadRequest, "validation_error", "validation failed", []usecase.FieldError{{Field: "query", Message: err.Error()}})
		return
	}
	page, err := s.svc.Catalog.Products(c.Request.Context(), q, includeInactive)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) featured(c *gin.Context) {
	out, err := s.svc.Catalog.Featured(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) productBySlug(c *gin.Context) {
	p, err := s.svc.Catalog.ProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) categories(c *gin.Context) {
	out, err := s.svc.Catalog.Categories(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) campaigns(c *gin.Context) {
	out, err := s.svc.Catalog.Campaigns(c.Request.Context(), true)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) loyaltyTiers(c *gin.Context) {
	out, err := s.svc.Catalog.LoyaltyTiers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) register(c *gin.Context) {
	var in usecase.RegisterInput
	if !s.bind(c, &in) {
		return
	}
	sess, err := s.svc.Auth.Register(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (s *Server) login(c *gin.Context) {
	var in usecase.LoginInput
	if !s.bind(c, &in) {
		return
	}
	sess, err := s.svc.Auth.Login(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) me(c *gin.Context) {
	u, err := s.svc.Auth.Me(c.Request.Context(), identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) addresses(c *gin.Context) {
	out, err := s.svc.Accounts.Addresses(c.Request.Context(), identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) addAddress(c *gin.Context) {
	var in usecase.SavedAddressInput
	if !s.bind(c, &in) {
		return
	}
	a, err := s.svc.Accounts.AddAddress(c.Request.Context(), identity(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) deleteAddress(c *gin.Context) {
	id, ok := s.paramID(c)
	if !ok {
		return
	}
	if err := s.svc.Accounts.DeleteAddress(c.Request.Context(), identity(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) prefs(c *gin.Context) {
	p, err := s.svc.Accounts.Prefs(c.Request.Context(), identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) savePrefs(c *gin.Context) {
	var in usecase.PrefsInput
	if !s.bind(c, &in) {
		return
	}
	p, err := s.svc.Accounts.SavePrefs(c.Request.Context(), identity(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}
