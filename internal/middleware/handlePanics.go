package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func HandlePanics() gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		log.Error().Str("panic", fmt.Sprint(recovered)).Str("path", c.Request.URL.Path).Msg("Recovered from panic")
		if c.Writer.Written() {
			c.Abort()
			return
		}
		AbortWithError(c, fmt.Errorf("internal error"))
	}
}
