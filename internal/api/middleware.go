package api

import (
	"log/slog"
	"time"

	"storefront-backend/internal/models"

	"github.com/gin-gonic/gin"
)

const userKey = "user"

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}

// requireAuth rejects the request unless it carries a valid bearer token
// for an existing user, and stores that user on the context.
func (s *Server) requireAuth(c *gin.Context) {
	user, err := s.auth.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Set(userKey, user)
	c.Next()
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
