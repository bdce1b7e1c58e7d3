package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docrankhq/docrank/internal/middleware"
)

type RouterDeps struct {
	Retrieval      *RetrievalHandler
	Rules          *RuleHandler
	Files          *FileHandler
	JWTSecret      []byte
	RetrieveWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/chats/:chat_id/retrieve",
		middleware.RateLimit(deps.RetrieveWindow), deps.Retrieval.Retrieve)
	authGroup.GET("/chats/:chat_id/files", deps.Files.ChatFiles)
	authGroup.GET("/chats/:chat_id/files/:file_id", deps.Files.Provenance)

	authGroup.POST("/rules", deps.Rules.Create)
	authGroup.GET("/rules", deps.Rules.List)
	authGroup.GET("/rules/:id", deps.Rules.Get)
	authGroup.PUT("/rules/:id", deps.Rules.Update)
	authGroup.DELETE("/rules/:id", deps.Rules.Delete)
	authGroup.POST("/rules/rank", deps.Rules.Rank)

	authGroup.GET("/files", deps.Files.List)
	authGroup.GET("/files/:id/content", deps.Files.Content)
}
