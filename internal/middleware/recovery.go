package middleware

import (
	"fmt"
	"net/http"

	"github.com/alimgiray/devfolio/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into the same 500 body the handlers use
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithField("request_id", GetRequestID(c)).
			WithField("panic", fmt.Sprint(recovered)).
			Error("Recovered from panic")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"details": fmt.Sprint(recovered),
		})
	})
}
