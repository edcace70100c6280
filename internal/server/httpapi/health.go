package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func livez(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func healthz(ready ReadinessFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			if err := ready(c.Request.Context()); err != nil {
				c.String(http.StatusServiceUnavailable, "not ready")
				return
			}
		}
		c.String(http.StatusOK, "ok")
	}
}
