package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lexdesk/internal/bootstrap"
	"lexdesk/internal/config"
	"lexdesk/internal/model"
	"lexdesk/internal/transport/http/handler"
	"lexdesk/internal/transport/http/middleware"
)

// RouterDeps is everything the router needs; NewRouter fills it from the
// running app.
type RouterDeps struct {
	Config   *config.Config
	Log      *zap.Logger
	Services bootstrap.Services
	Health   handler.HealthDeps
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	return BuildRouter(RouterDeps{
		Config:   app.Config,
		Log:      app.Log,
		Services: app.Services,
		Health: handler.HealthDeps{
			AppName:   app.Config.App.Name,
			Env:       app.Config.App.Env,
			Postgres:  app.Postgres,
			Redis:     app.Redis,
			MQConn:    app.MQConn,
			StartedAt: app.StartedAt,
		},
	})
}

func BuildRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(middleware.Recovery(deps.Log), middleware.RequestLogger(deps.Log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	svc := deps.Services
	healthHandler := handler.NewHealthHandler(deps.Health)
	authHandler := handler.NewAuthHandler(svc.Auth, cfg.Auth.CookieName, cfg.Auth.CookieSecure)
	passwordHandler := handler.NewPasswordHandler(svc.PasswordReset)
	chatHandler := handler.NewChatHandler(svc.Chat)
	documentHandler := handler.NewDocumentHandler(svc.Document)
	caseHandler := handler.NewCaseHandler(svc.Case, svc.CaseFile)
	lookupHandler := handler.NewLookupHandler(svc.Lookup, svc.Lawyer)
	billingHandler := handler.NewBillingHandler(svc.Billing)

	authRequired := middleware.AuthJWT(cfg.Auth.Secret, cfg.Auth.CookieName)
	limiter := middleware.NewRateLimiter(cfg.Limits.AuthRequestsPerMinute, deps.Log)

	router.GET("/healthz", healthHandler.Check)

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		limited := authGroup.Group("", limiter.Middleware())
		limited.POST("/register", authHandler.Register)
		limited.POST("/register/lawyer", authHandler.RegisterLawyer)
		limited.POST("/login", authHandler.Login)
		limited.POST("/password/forgot", passwordHandler.Forgot)
		limited.POST("/password/verify", passwordHandler.Verify)
		limited.POST("/password/reset", passwordHandler.Reset)

		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", authRequired, authHandler.Me)
	}

	lookup := api.Group("/lookup")
	lookup.GET("/countries", lookupHandler.Countries)
	lookup.GET("/countries/:id/states", lookupHandler.States)
	lookup.GET("/states/:id/cities", lookupHandler.Cities)
	api.GET("/lawyers", lookupHandler.Lawyers)

	api.POST("/stripe/webhook", billingHandler.Webhook)

	private := api.Group("", authRequired)
	{
		private.GET("/history", chatHandler.ListHistory)

		private.POST("/chat", chatHandler.SendMessage)
		private.POST("/chat/stream", chatHandler.StreamMessage)
		private.GET("/chat/remaining", chatHandler.Remaining)
		private.GET("/chat/:id", chatHandler.GetChat)
		private.DELETE("/chat/:id", chatHandler.DeleteChat)
		private.PATCH("/chat/:id/visibility", chatHandler.UpdateVisibility)
		private.PATCH("/chat/:id/case", chatHandler.AttachCase)
		private.GET("/chat/:id/messages", chatHandler.GetMessages)
		private.GET("/chat/:id/streams", chatHandler.ListStreams)
		private.DELETE("/messages/:id/trailing", chatHandler.DeleteTrailing)

		private.GET("/vote", chatHandler.ListVotes)
		private.PATCH("/vote", chatHandler.Vote)

		private.GET("/document", documentHandler.Get)
		private.POST("/document", documentHandler.Save)
		private.DELETE("/document", documentHandler.DeleteAfter)
		private.GET("/suggestions", documentHandler.GetSuggestions)
		private.POST("/suggestions", documentHandler.AddSuggestions)
		private.PATCH("/suggestions/:id/resolve", documentHandler.ResolveSuggestion)

		private.GET("/cases", caseHandler.List)
		private.POST("/cases", caseHandler.Create)
		private.GET("/cases/:id", caseHandler.Get)
		private.PATCH("/cases/:id", caseHandler.Update)
		private.DELETE("/cases/:id", caseHandler.Delete)
		private.GET("/cases/:id/chats", caseHandler.ListChats)
		private.GET("/cases/:id/files", caseHandler.ListFiles)
		private.POST("/cases/:id/files", caseHandler.UploadFile)
		private.GET("/cases/:id/files/:fileId", caseHandler.GetFile)
		private.DELETE("/cases/:id/files/:fileId", caseHandler.DeleteFile)
		private.GET("/cases/:id/search", caseHandler.Search)

		private.POST("/stripe/checkout", billingHandler.Checkout)
		private.POST("/stripe/portal", billingHandler.Portal)
		private.GET("/stripe/subscription", billingHandler.Subscription)
		private.GET("/stripe/invoices", billingHandler.Invoices)

		private.PATCH("/admin/lawyers/:id/verify", middleware.RequireRole(model.RoleAdmin), authHandler.VerifyLawyer)
	}

	return router
}
