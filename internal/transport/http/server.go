package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"peakmind/internal/ai"
	appsvc "peakmind/internal/app"
	"peakmind/internal/bootstrap"
	"peakmind/internal/cache"
	"peakmind/internal/config"
	"peakmind/internal/guardrail"
	"peakmind/internal/platform/rabbitmq"
	"peakmind/internal/repository"
	"peakmind/internal/transport/http/handler"
	"peakmind/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	cfg := app.Config

	userRepo := repository.NewUserRepository(app.MySQL)
	entitlementRepo := repository.NewEntitlementRepository(app.MySQL)
	chatLogRepo := repository.NewChatLogRepository(app.MySQL)

	entitlementCache := cache.NewEntitlementCache(app.Redis, time.Duration(cfg.Redis.EntitlementTTLSeconds)*time.Second)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	stateStore := cache.NewOAuthStateStore(app.Redis, time.Duration(cfg.Auth.OAuthStateTTLSec)*time.Second)

	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		googleOAuthConfig(cfg.Auth),
		stateStore,
	)
	entitlementService := appsvc.NewEntitlementService(entitlementRepo, entitlementCache)
	billingService := appsvc.NewBillingService(cfg.Stripe, entitlementService, userRepo)

	llmClient := ai.NewOpenAICompatibleClient(time.Duration(cfg.LLM.TimeoutSeconds) * time.Second)
	chatService := appsvc.NewChatService(
		guardrail.Config{
			MaxMessages:     cfg.Guardrail.MaxMessages,
			MaxMessageChars: cfg.Guardrail.MaxMessageChars,
			MaxTotalChars:   cfg.Guardrail.MaxTotalChars,
			SystemPrompt:    cfg.Guardrail.SystemPrompt,
		},
		ai.ChatConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
		llmClient,
		rabbitmq.NewChatLogPublisher(app.MQConn, cfg.RabbitMQ.ChatLogQueue),
		historyCache,
		chatLogRepo,
	)

	authHandler := handler.NewAuthHandler(authService, entitlementService)
	chatHandler := handler.NewChatHandler(chatService)
	billingHandler := handler.NewBillingHandler(billingService)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(cfg.Auth.JWTSecret), authHandler.Me)
	authGroup.GET("/oauth/google", authHandler.GoogleAuth)
	authGroup.GET("/oauth/google/callback", authHandler.GoogleCallback)

	billingGroup := v1.Group("/billing")
	billingGroup.POST("/checkout", middleware.AuthJWT(cfg.Auth.JWTSecret), billingHandler.Checkout)
	billingGroup.POST("/webhook", billingHandler.Webhook)

	// Gate order matters: authentication, then entitlement, then the
	// handler parses the body.
	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.AuthJWT(cfg.Auth.JWTSecret), middleware.RequireEntitlement(entitlementService))
	chatGroup.POST("", chatHandler.Chat)
	chatGroup.GET("/history", chatHandler.History)

	return router
}

func googleOAuthConfig(cfg config.AuthConfig) *oauth2.Config {
	if cfg.GoogleClientID == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}
