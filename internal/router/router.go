package router

import (
	"Pod_Pulse/internal/handler"
	"Pod_Pulse/internal/middleware"

	"github.com/gin-gonic/gin"
)

func InitRouter() *gin.Engine {
	r := gin.Default()

	user := handler.NewUserHandler()
	pod := handler.NewPodHandler()
	post := handler.NewPostHandler()
	account := handler.NewAccountHandler()

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", user.TokenRefresh)
	}

	// 平台回调，无登录态
	r.POST("/api/webhook/account", account.Webhook)

	// 登录态接口
	authGroup := r.Group("/api/auth")
	authGroup.Use(middleware.AuthMiddleware())
	{
		authGroup.POST("/logout", user.Logout)
	}

	// pod 相关接口
	podGroup := r.Group("/api/pod")
	podGroup.Use(middleware.AuthMiddleware())
	{
		podGroup.POST("/create", pod.Create)
		podGroup.POST("/join", pod.Join)
		podGroup.POST("/leave/:id", pod.Leave)
		podGroup.GET("/members/:id", pod.Members)
		podGroup.GET("/list", pod.List)
	}

	// 互动任务相关接口
	postGroup := r.Group("/api/post")
	postGroup.Use(middleware.AuthMiddleware())
	{
		postGroup.POST("/submit", post.Submit)
		postGroup.GET("/status/:id", post.Status)
		postGroup.POST("/cancel/:id", post.Cancel)
		postGroup.GET("/list/:id", post.ListByPod)
	}

	// 账号相关接口
	accountGroup := r.Group("/api/account")
	accountGroup.Use(middleware.AuthMiddleware())
	{
		accountGroup.GET("/", account.Get)
		accountGroup.POST("/settings", account.UpdateSettings)
	}

	return r
}
