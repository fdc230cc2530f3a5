package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"doha-explorer/cmd/chatapi/handlers"
	"doha-explorer/cmd/chatapi/middleware"
	"doha-explorer/cmd/chatapi/services"
	"doha-explorer/config"
	_ "doha-explorer/docs"
)

// Deps 는 라우터가 필요로 하는 서비스 묶음이다.
type Deps struct {
	Chat *services.ChatService
	// Tokens 가 nil 이면 Authorization 헤더가 있는 요청은 모두 401 이다.
	Tokens       middleware.TokenParser
	RequireToken bool
	// PingMongo 가 nil 이면 /health 는 Mongo 상태를 보고하지 않는다.
	PingMongo func(ctx context.Context) error
}

func New(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestTrace(), middleware.RequestLogging(10*time.Second))

	r.GET("/health", handlers.HealthHandler(deps.PingMongo))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	api.Use(middleware.BearerAuth(deps.Tokens, deps.RequireToken))
	{
		api.POST("/chat", handlers.ChatHandler(deps.Chat))
	}

	return r
}

// WithCORS 는 브라우저 클라이언트를 위해 허용된 origin 만 통과시키는 CORS 래퍼를 씌운다.
// allowedOrigins 가 비어 있으면 모든 origin 을 허용한다.
func WithCORS(h http.Handler, cfg config.ServerConfig) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "X-Span-Id"},
		MaxAge:         600,
	}).Handler(h)
}
