package server

import (
	"errors"
	"net/http"
	"strconv"

	"furnish-backend/internal/infrastructure/e2"
	"furnish-backend/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Code      string               `json:"code"`
	Message   string               `json:"message"`
	RequestID string               `json:"requestId"`
	Fields    []usecase.FieldError `json:"fields,omitempty"`
	IDs       []uint               `json:"ids,omitempty"`
}

func abort(c *gin.Context, status int, code, msg string, fields []usecase.FieldError) {
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{
		Code:      code,
		Message:   msg,
		RequestID: c.GetString(ctxRequestID),
		Fields:    fields,
	}})
}

func (s *Server) err(c *gin.Context, status int, code, msg string) {
	abort(c, status, code, msg, nil)
}

// fail maps a use case error onto the response envelope. Unknown errors are
// logged and reported without detail.
func (s *Server) fail(c *gin.Context, err error) {
	var (
		ve    *usecase.ValidationError
		ipe   *usecase.InvalidProductError
		se    *usecase.InsufficientStockError
		ce    *usecase.ConflictError
		nf    usecase.ErrNotFound
		br    usecase.ErrBadRequest
		nc    usecase.ErrNotConfigured
		gwErr *e2.GatewayError
	)
	switch {
	case errors.As(err, &ve):
		abort(c, http.StatusBadRequest, "validation_error", "validation failed", ve.Fields)
	case errors.As(err, &ipe):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errorBody{
			Code:      "invalid_product",
			Message:   ipe.Error(),
			RequestID: c.GetString(ctxRequestID),
			IDs:       ipe.IDs,
		}})
	case errors.As(err, &se):
		s.err(c, http.StatusConflict, "insufficient_stock", se.Error())
	case errors.As(err, &ce):
		var fields []usecase.FieldError
		if ce.Field != "" {
			fields = []usecase.FieldError{{Field: ce.Field, Message: ce.Message}}
		}
		abort(c, http.StatusConflict, "conflict", ce.Error(), fields)
	case errors.As(err, &nf):
		s.err(c, http.StatusNotFound, "not_found", nf.Error())
	case errors.As(err, &br):
		s.err(c, http.StatusBadRequest, "bad_request", br.Error())
	case errors.Is(err, usecase.ErrUnauthorized):
		s.err(c, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, usecase.ErrForbidden):
		s.err(c, http.StatusForbidden, "forbidden", err.Error())
	case errors.As(err, &nc):
		s.err(c, http.StatusServiceUnavailable, "not_configured", nc.Error())
	case errors.Is(err, e2.ErrGatewayTimeout):
		s.err(c, http.StatusGatewayTimeout, "gateway_timeout", "payment gateway did not answer in time")
	case errors.As(err, &gwErr):
		s.err(c, http.StatusBadGateway, "gateway_error", gwErr.Message)
	case errors.Is(err, e2.ErrInvalidPhone), errors.Is(err, e2.ErrInvalidAmount),
		errors.Is(err, e2.ErrInvalidReference), errors.Is(err, e2.ErrInvalidProvider):
		s.err(c, http.StatusBadRequest, "bad_request", err.Error())
	default:
		s.log.Error("request failed", "err", err, "path", c.Request.URL.Path, "request_id", c.GetString(ctxRequestID))
		s.err(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// bind decodes the JSON body into v.
func (s *Server) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		abort(c, http.StatusBadRequest, "validation_error", "invalid JSON body", []usecase.FieldError{{Field: "body", Message: err.Error()}})
		return false
	}
	return true
}

func (s *Server) paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		s.err(c, http.StatusBadRequest, "bad_request", "invalid id")
		return 0, false
	}
	return uint(id), true
}
