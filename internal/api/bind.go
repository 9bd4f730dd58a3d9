package api

import (
	"github.com/gin-gonic/gin"

	"github.com/vapter/vaptord/internal/apierr"
)

// bindJSON decodes the request body into dst (via its json tags, no
// binding-tag side effects) and runs it through the shared validator.
// Returns false and writes the error onto the context if either step
// fails, so callers can just `if !s.bindJSON(c, &req) { return }`.
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.Error(apierr.Validation("invalid request body: %s", err))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		c.Error(apierr.Validation("%s", err))
		return false
	}
	return true
}
