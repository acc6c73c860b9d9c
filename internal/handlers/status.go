package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Status returns the same diagnostic snapshot as the get-status event, for
// dashboards that poll over REST instead of holding a signaling connection.
func Status(gw *Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gw.StatusSnapshot())
	}
}
