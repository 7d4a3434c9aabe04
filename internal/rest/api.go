package rest

import (
	"github.com/dfryer1193/micropub/internal/middleware"
	"github.com/gin-gonic/gin"
)

// NewApi registers every route on router. home may be nil when no README is configured.
func NewApi(router *gin.Engine, micropub *MicropubHandler, home *HomeHandler) {
	authed := router.Group("/", middleware.RequireToken(micropub.verifier))
	{
		authed.GET("/micropub", micropub.Query)
		authed.POST("/micropub", micropub.Post)
		authed.POST("/media", micropub.UploadMedia)
	}

	if home != nil {
		home.RegisterRoutes(router)
	}
}
