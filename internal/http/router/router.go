package router

import (
	"github.com/gin-gonic/gin"

	"lintel.app/tracker/internal/http/handler"
	"lintel.app/tracker/internal/service"
)

func SetupRoutes(router *gin.Engine, services *service.Services) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		issueHandler := handler.NewIssueHandler(services.Issues())
		IssueRouter(v1, issueHandler)
	}
}
