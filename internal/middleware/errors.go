package middleware

import (
	"github.com/dfryer1193/micropub/api"
	"github.com/dfryer1193/micropub/blog/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// AbortWithError writes err as a Micropub error body and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	e := domain.AsError(err)
	status := e.Kind.Status()
	if status >= 500 {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.AbortWithStatusJSON(status, api.ErrorResponse{
		Error:            string(e.Kind),
		ErrorDescription: e.Description,
	})
}
