package server

import (
	"net/http"

	"furnish-backend/internal/usecase"

	"github.com/gin-gonic/gin"
)

// deleteBy wires a DELETE /:id route to del.
func (s *Server) deleteBy(c *gin.Context, del func(c *gin.Context, id uint) error) {
	id, ok := s.paramID(c)
	if !ok {
		return
	}
	if err := del(c, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createProduct(c *gin.Context) {
	var in usecase.ProductInput
	if !s.bind(c, &in) {
		return
	}
	p, err := s.svc.Catalog.CreateProduct(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) updateProduct(c *gin.Context) {
	id, ok := s.paramID(c)
	if !ok {
		return
	}
	var in usecase.ProductInput
	if !s.bind(c, &in) {
		return
	}
	p, err := s.svc.Catalog.UpdateProduct(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProduct(c *gin.Context) {
	s.deleteBy(c, func(c *gin.Context, id uint) error { return s.svc.Catalog.DeleteProduct(c.Request.Context(), id) })
}

func (s *Server) createCategory(c *gin.Context) {
	var in usecase.CategoryInput
	if !s.bind(c, &in) {
		return
	}
	cat, err := s.svc.Catalog.CreateCategory(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (s *Server) updateCategory(c *gin.Context) {
	id, ok := s.paramID(c)
	if !ok {
		return
	}
	var in usecase.CategoryInput
	if !s.bind(c, &in) {
		return
	}
	cat, err := s.svc.Catalog.UpdateCategory(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *Server) deleteCategory(c *gin.Context) {
	s.deleteBy(c, func(c *gin.Context, id uint) error { return s.svc.Catalog.DeleteCategory(c.Request.Context(), id) })
}

func (s *Server) reorderCategories(c *gin.Context) {
	var in usecase.ReorderInput
	if !s.bind(c, &in) {
		return
	}
	out, err := s.svc.Catalog.ReorderCategories(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) setFeatured(c *gin.Context) {
	var in usecase.FeaturedInput
	if !s.bind(c, &in) {
		return
	}
	out, err := s.svc.Catalog.SetFeatured(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) adminCampaigns(c *gin.Context) {
	out, err := s.svc.Catalog.Campaigns(c.Request.Context(), false)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createCampaign(c *gin.Context) {
	var in usecase.CampaignInput
	if !s.bind(c, &in) {
		return
	}
	out, err := s.svc.Catalog.CreateCampaign(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) deleteCampaign(c *gin.Context) {
	s.deleteBy(c, func(c *gin.Context, id uint) error { return s.svc.Catalog.DeleteCampaign(c.Request.Context(), id) })
}

func (s *Server) createLoyaltyTier(c *gin.Context) {
	var in usecase.LoyaltyTierInput
	if !s.bind(c, &in) {
		return
	}
	out, err := s.svc.Catalog.CreateLoyaltyTier(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) deleteLoyaltyTier(c *gin.Context) {
	s.deleteBy(c, func(c *gin.Context, id uint) error { return s.svc.Catalog.DeleteLoyaltyTier(c.Request.Context(), id) })
}

func (s *Server) adminOrders(c *gin.Context) {
	page, err := s.svc.Orders.ListOrders(c.Request.Context(), c.Query("status"), queryInt(c, "page"), queryInt(c, "pageSize"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) updateOrder(c *gin.Context) {
	id, ok := s.paramID(c)
	if !ok {
		return
	}
	var in usecase.UpdateOrderInput
	if !s.bind(c, &in) {
		return
	}
	o, err := s.svc.Orders.UpdateOrder(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) stats(c *gin.Context) {
	out, err := s.svc.Orders.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) coupons(c *gin.Context) {
	out, err := s.svc.Coupons.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createCoupon(c *gin.Context) {
	var in usecase.CouponInput
	if !s.bind(c, &in) {
		return
	}
	out, err := s.svc.Coupons.Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) updateCoupon(c *gin.Context) {
	id, ok := s.paramID(c)
	if !ok {
		return
	}
	var in usecase.CouponInput
	if !s.bind(c, &in) {
		return
	}
	out, err := s.svc.Coupons.Update(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteCoupon(c *gin.Context) {
	s.deleteBy(c, func(c *gin.Context, id uint) error { return s.svc.Coupons.Delete(c.Request.Context(), id) })
}

func (s *Server) adminPaymentMethods(c *gin.Context) {
	out, err := s.svc.Payments.Methods(c.Request.Context(), false)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// upsertPaymentMethod answers 201 for a new method and 200 when a method of
// the same type was updated instead.
func (s *Server) upsertPaymentMethod(c *gin.Context) {
	var in usecase.PaymentMethodInput
	if !s.bind(c, &in) {
		return
	}
	m, created, err := s.svc.Payments.UpsertMethod(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, m)
}

func (s *Server) updatePaymentMethod(c *gin.Context) {
	id, ok := s.paramID(c)
	if !ok {
		return
	}
	var in usecase.PaymentMethodInput
	if !s.bind(c, &in) {
		return
	}
	m, err := s.svc.Payments.UpdateMethod(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) deletePaymentMethod(c *gin.Context) {
	s.deleteBy(c, func(c *gin.Context, id uint) error { return s.svc.Payments.DeleteMethod(c.Request.Context(), id) })
}

func (s *Server) gatewayWallets(c *gin.Context) {
	raw, err := s.svc.Payments.GatewayWallets(c.Request.Context(), c.Query("provider"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) gatewayPayments(c *gin.Context) {
	raw, err := s.svc.Payments.GatewayPayments(c.Request.Context(), c.Query("provider"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) adminShippingRules(c *gin.Context) {
	out, err := s.svc.Shipping.Rules(c.Request.Context(), false)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createShippingRule(c *gin.Context) {
	var in usecase.ShippingRuleInput
	if !s.bind(c, &in) {
		return
	}
	out, err := s.svc.Shipping.Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) updateShippingRule(c *gin.Context) {
	id, ok := s.paramID(c)
	if !ok {
		return
	}
	var in usecase.ShippingRuleInput
	if !s.bind(c, &in) {
		return
	}
	out, err := s.svc.Shipping.Update(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteShippingRule(c *gin.Context) {
	s.deleteBy(c, func(c *gin.Context, id uint) error { return s.svc.Shipping.Delete(c.Request.Context(), id) })
}
