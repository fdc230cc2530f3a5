package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"doha-explorer/cmd/chatapi/llm"
	"doha-explorer/cmd/chatapi/router"
	"doha-explorer/cmd/chatapi/services"
	"doha-explorer/config"
	"doha-explorer/db"
	"doha-explorer/identity"
	"doha-explorer/repositories"
)

// @title           Doha Explorer Chat API
// @version         1.0
// @description     Chat completion API behind the Doha Explorer assistant
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Server.Logging)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		config.Logger.Errorf("failed to initialize LLM client: %v", err)
		os.Exit(1)
	}

	// AI 로그는 부가 기능이라 Mongo 연결 실패 시에도 서버는 뜬다.
	var logs services.AILogWriter
	var pingMongo func(context.Context) error
	if err := db.Init(ctx); err != nil {
		config.Logger.Warnf("MongoDB unavailable, ai logs disabled: %v", err)
	} else {
		logs = repositories.NewAILogRepository(db.Database())
		pingMongo = db.Ping
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Close(closeCtx)
		}()
	}

	verifier, err := identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 0)
	if err != nil {
		if cfg.Auth.RequireToken {
			config.Logger.Errorf("auth.require_token is set but the verifier could not be built: %v", err)
			os.Exit(1)
		}
		config.Logger.Warnf("token verification disabled: %v", err)
	}

	deps := router.Deps{
		Chat:         services.NewChatService(model, logs, cfg.Server.MaxMessageLen),
		RequireToken: cfg.Auth.RequireToken,
		PingMongo:    pingMongo,
	}
	if verifier != nil {
		deps.Tokens = verifier
	}
	engine := router.New(deps)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router.WithCORS(engine, cfg.Server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			config.Logger.Errorf("server shutdown: %v", err)
		}
	}()

	config.Logger.Infof("chat api listening on %s (provider=%s model=%s)", cfg.Server.Addr, cfg.LLM.Provider, model.Model())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		config.Logger.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
}
