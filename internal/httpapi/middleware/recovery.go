package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/model-gateway/internal/common"
)

// Recovery turns panics into the standard error envelope instead of gin's
// default plain-text 500.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				rid, _ := c.Get(RequestIDKey)
				log.Printf("panic recovered request_id=%v err=%v", rid, r)
				common.Fail(c, http.StatusInternalServerError, 50000, "internal error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
