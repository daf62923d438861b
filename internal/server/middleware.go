package server

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"furnish-backend/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxRequestID = "requestId"
	ctxIdentity  = "identity"
	headerReqID  = "X-Request-ID"
)

// requestID reuses a sane client supplied id or generates one.
func (s *Server) requestID(c *gin.Context) {
	id := strings.TrimSpace(c.GetHeader(headerReqID))
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}
	c.Set(ctxRequestID, id)
	c.Header(headerReqID, id)
	c.Next()
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Info("http request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
		"ip", c.ClientIP(),
		"request_id", c.GetString(ctxRequestID),
	)
}

func (s *Server) recoverPanics(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic", "err", r, "path", c.Request.URL.Path, "stack", string(debug.Stack()))
			s.err(c, http.StatusInternalServerError, "internal_error", "internal server error")
		}
	}()
	c.Next()
}

func securityHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	c.Next()
}

func (s *Server) cors(c *gin.Context) {
	origin := c.GetHeader("Origin")
	if origin != "" && s.originAllowed(origin) {
		if len(s.cfg.CORSOrigins) == 1 && s.cfg.CORSOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID, X-Webhook-Token")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	}
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.cfg.CORSOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// authenticate attaches the caller identity when a bearer token is sent. A
// token that does not verify is rejected outright.
func (s *Server) authenticate(c *gin.Context) {
	h := c.GetHeader("Authorization")
	if h == "" || s.svc.Auth == nil {
		c.Next()
		return
	}
	tok, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		s.err(c, http.StatusUnauthorized, "unauthorized", "expected a bearer token")
		return
	}
	who, err := s.svc.Auth.Verify(strings.TrimSpace(tok))
	if err != nil {
		s.err(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
		return
	}
	c.Set(ctxIdentity, who)
	c.Next()
}

func identity(c *gin.Context) usecase.Identity {
	if v, ok := c.Get(ctxIdentity); ok {
		if who, ok := v.(usecase.Identity); ok {
			return who
		}
	}
	return usecase.Identity{}
}

func requireUser(c *gin.Context) {
	if !identity(c).Authenticated() {
		abort(c, http.StatusUnauthorized, "unauthorized", usecase.ErrUnauthorized.Error(), nil)
		return
	}
	c.Next()
}

func requireAdmin(c *gin.Context) {
	who := identity(c)
	switch {
	case !who.Authenticated():
		abort(c, http.StatusUnauthorized, "unauthorized", usecase.ErrUnauthorized.Error(), nil)
	case !who.Admin():
		abort(c, http.StatusForbidden, "forbidden", usecase.ErrForbidden.Error(), nil)
	default:
		c.Next()
	}
}
