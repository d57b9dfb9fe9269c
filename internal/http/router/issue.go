package router

import (
	"github.com/gin-gonic/gin"

	"lintel.app/tracker/internal/http/handler"
)

// IssueRouter sets up the issue routes under /api/v1
func IssueRouter(rg *gin.RouterGroup, h *handler.IssueHandler) {
	issues := rg.Group("/issues")
	{
		issues.POST("", h.Create)
		issues.GET("/:key", h.GetByKey)
		issues.PATCH("/:key", h.Update)
		issues.DELETE("/:key", h.Delete)
		issues.GET("/:key/changes", h.ListChanges)
		issues.POST("/:key/comments", h.AddComment)
	}

	rg.GET("/projects/:projectKey/issues", h.ListByProject)
}
