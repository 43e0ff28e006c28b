package api

import (
	"github.com/gin-gonic/gin"

	"jobnest/internal/api/middleware"
	"jobnest/internal/database"
)

// Handlers 汇总 RegisterRoutes 需要的全部处理器。
type Handlers struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Jobs         *JobHandler
	Applications *ApplicationHandler
	SavedJobs    *SavedJobHandler
	Messages     *MessageHandler
	Uploads      *UploadHandler
}

// RegisterRoutes 在 /api 前缀下注册业务路由。
func RegisterRoutes(router *gin.Engine, validator middleware.TokenValidator, h Handlers) {
	authRequired := middleware.AuthMiddleware(validator)
	seekerOnly := middleware.RequireRole(string(database.RoleSeeker))
	recruiterOnly := middleware.RequireRole(string(database.RoleRecruiter))

	apiGroup := router.Group("/api")

	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", authRequired, h.Auth.Logout)
	}

	userGroup := apiGroup.Group("/users", authRequired)
	{
		userGroup.GET("/me", h.Users.GetMe)
		userGroup.PUT("/me", h.Users.UpdateMe)
		userGroup.GET("/:id", h.Users.GetUser)
	}

	jobGroup := apiGroup.Group("/jobs")
	{
		jobGroup.GET("", h.Jobs.SearchJobs)
		jobGroup.GET("/recruiter", authRequired, recruiterOnly, h.Jobs.ListRecruiterJobs)
		jobGroup.GET("/:id", h.Jobs.GetJob)
		jobGroup.POST("", authRequired, recruiterOnly, h.Jobs.CreateJob)
		jobGroup.PUT("/:id", authRequired, recruiterOnly, h.Jobs.UpdateJob)
		jobGroup.DELETE("/:id", authRequired, recruiterOnly, h.Jobs.DeleteJob)
	}

	applicationGroup := apiGroup.Group("/applications", authRequired)
	{
		applicationGroup.POST("", seekerOnly, h.Applications.Apply)
		applicationGroup.GET("/my", seekerOnly, h.Applications.ListMine)
		applicationGroup.GET("/job/:jobId", recruiterOnly, h.Applications.ListForJob)
		applicationGroup.PUT("/:id/status", recruiterOnly, h.Applications.UpdateStatus)
		applicationGroup.PUT("/:id", seekerOnly, h.Applications.Edit)
		applicationGroup.DELETE("/:id", seekerOnly, h.Applications.Withdraw)
		applicationGroup.GET("/:id/events", h.Applications.ListEvents)
	}

	savedGroup := apiGroup.Group("/saved-jobs", authRequired, seekerOnly)
	{
		savedGroup.POST("", h.SavedJobs.Save)
		savedGroup.GET("", h.SavedJobs.List)
		savedGroup.GET("/check/:jobId", h.SavedJobs.Check)
		savedGroup.DELETE("/:jobId", h.SavedJobs.Unsave)
	}

	messageGroup := apiGroup.Group("/messages", authRequired)
	{
		messageGroup.POST("", h.Messages.Send)
		messageGroup.GET("/:userId", h.Messages.Conversation)
		messageGroup.PUT("/:userId/read", h.Messages.MarkRead)
		messageGroup.DELETE("/:id", h.Messages.Delete)
	}

	apiGroup.POST("/upload/resume", authRequired, h.Uploads.UploadResume)
	apiGroup.GET("/files/*key", authRequired, h.Uploads.GetFile)
}
