package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/dukasync/storesync/internal/server/http/middleware"
)

// CurrentAdminSubject extracts the authenticated back-office subject from
// the request context.
func CurrentAdminSubject(c *gin.Context) string {
	val, ok := c.Get(middleware.AdminSubjectContextKey)
	if !ok {
		return ""
	}
	subject, _ := val.(string)
	return subject
}
