package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"maestro.app/gateway/common/id"
	"maestro.app/gateway/common/llm"
	"maestro.app/gateway/common/logger"
	"maestro.app/gateway/common/otel"
	"maestro.app/gateway/core/config"
	"maestro.app/gateway/core/db"
	"maestro.app/gateway/internal/agent"
	"maestro.app/gateway/internal/chat"
	"maestro.app/gateway/internal/http/middleware"
	httprouter "maestro.app/gateway/internal/http/router"
	"maestro.app/gateway/internal/session"
	"maestro.app/gateway/internal/store"
	"maestro.app/gateway/internal/tools"
	"maestro.app/gateway/internal/ws"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "concierge starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	engine, err := llm.NewAgentClient(llm.Config{
		Provider: cfg.ChatLLM.Provider,
		APIKey:   cfg.ChatLLM.APIKey,
		BaseURL:  cfg.ChatLLM.BaseURL,
		Model:    cfg.ChatLLM.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to build llm client", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "llm client ready", "provider", cfg.ChatLLM.Provider, "model", engine.Model())

	var archiver ws.Archiver
	if cfg.Archive.Enabled() {
		database, err := db.New(ctx, cfg.Archive)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		archiver = store.NewConversationStore(database.Pool())
		slog.InfoContext(ctx, "transcript archive enabled")
	}

	taskAgent := agent.NewTaskAgent(engine, agent.NewTaskClient(cfg.Tasks.BaseURL))
	routineAgent := agent.NewRoutineAgent(engine, agent.NewRoutineClient(cfg.Routines.BaseURL))
	utilities := tools.Registry()

	factory := func(channel chat.Channel) (*chat.Coordinator, error) {
		caps := []chat.Capability{taskAgent.Capability(), routineAgent.Capability()}
		caps = append(caps, utilities...)
		return chat.NewCoordinator(engine, channel, caps, chat.Config{
			MaxIterations: cfg.Chat.MaxIterations,
			MaxTokens:     cfg.ChatLLM.MaxTokens,
			HandleTimeout: time.Duration(cfg.Chat.HandleTimeout) * time.Second,
		})
	}

	registry := session.NewRegistry(factory)
	wsHandler := ws.NewHandler(registry, archiver, cfg.Chat.DedupThreshold)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, wsHandler)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, wsHandler *ws.Handler) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, wsHandler, httprouter.RouterConfig{
		Spotify: cfg.Spotify,
	})

	return router
}

const banner = `
 ██████╗ ██████╗ ███╗   ██╗ ██████╗██╗███████╗██████╗  ██████╗ ███████╗
██╔════╝██╔═══██╗████╗  ██║██╔════╝██║██╔════╝██╔══██╗██╔════╝ ██╔════╝
██║     ██║   ██║██╔██╗ ██║██║     ██║█████╗  ██████╔╝██║  ███╗█████╗
██║     ██║   ██║██║╚██╗██║██║     ██║██╔══╝  ██╔══██╗██║   ██║██╔══╝
╚██████╗╚██████╔╝██║ ╚████║╚██████╗██║███████╗██║  ██║╚██████╔╝███████╗
 ╚═════╝ ╚═════╝ ╚═╝  ╚═══╝ ╚═════╝╚═╝╚══════╝╚═╝  ╚═╝ ╚═════╝ ╚══════╝
`
