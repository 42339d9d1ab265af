package app

import (
	"github.com/gin-gonic/gin"
	"github.com/philippebeck/links2code-api/internal/sdk/middleware"
)

// RegisterRoutes builds the gin engine with the full middleware chain.
//
// The rate guard wraps only the account-creation and login paths and runs
// before authentication and validation, so a rate-limited request never
// reaches the validators or the store.
func (a *App) RegisterRoutes() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.CORS())

	health := router.Group("/health")
	{
		health.GET("/readiness", a.HandleReadiness)
		health.GET("/liveness", a.HandleLiveness)
	}

	authenticated := middleware.Authenticate(a.tokens)
	limited := middleware.RateLimit(a.guard, a.logger)

	links := router.Group("/links")
	{
		links.GET("", a.HandleListLinks)
		links.POST("", authenticated, a.HandleCreateLink)
		links.PUT("/:id", authenticated, a.HandleUpdateLink)
		links.DELETE("/:id", authenticated, a.HandleDeleteLink)
	}

	users := router.Group("/users")
	{
		users.GET("", authenticated, a.HandleListUsers)
		users.POST("", limited, authenticated, a.HandleCreateUser)
		users.POST("/login", limited, a.HandleLogin)
		users.PUT("/:id", authenticated, a.HandleUpdateUser)
		users.DELETE("/:id", authenticated, a.HandleDeleteUser)
		users.POST("/send", a.HandleSendMessage)
	}

	return router
}
