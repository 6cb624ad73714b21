package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"gamehub-chat/internal/channels"
	"gamehub-chat/internal/chat"
	"gamehub-chat/internal/config"
	"gamehub-chat/internal/db"
	"gamehub-chat/internal/handlers"
	"gamehub-chat/internal/middleware"
	"gamehub-chat/internal/moderation"
	"gamehub-chat/internal/observability"
	"gamehub-chat/internal/rabbitmq"
	"gamehub-chat/internal/ratelimit"
	"gamehub-chat/internal/repositories"
	"gamehub-chat/internal/session"
	"gamehub-chat/internal/telemetry"
	"gamehub-chat/internal/ws"
)

const serviceName = "gamehub-chat"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, serviceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	if err := handlers.EnsureUploadDir(cfg.UploadDir); err != nil {
		log.Fatalf("failed to create upload dir: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("audit publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	audit := telemetry.NewAuditEmitter(publisher, "chat.moderation", serviceName, cfg.Environment)

	messageRepo := repositories.NewMessageRepo(database)
	sessionRepo := repositories.NewSessionRepo(database)
	moderationRepo := repositories.NewModerationRepo(database)
	reportRepo := repositories.NewReportRepo(database)
	userRepo := repositories.NewUserRepo(database)

	state := moderation.NewState(moderationRepo)
	if err := state.Load(ctx); err != nil {
		log.Fatalf("failed to load moderation state: %v", err)
	}

	sessions := session.NewStore(sessionRepo, state)
	if err := sessions.Load(ctx); err != nil {
		log.Fatalf("failed to load sessions: %v", err)
	}

	authz := channels.NewAuthorizer(cfg.PublicRooms, cfg.StaffRoom)
	staff, err := userRepo.StaffUsernames(ctx)
	if err != nil {
		log.Fatalf("failed to load staff usernames: %v", err)
	}
	authz.SetStaff(staff)

	hub := ws.NewHub()
	state.SetSessions(sessions)
	state.SetConns(hub)
	sessions.SetConns(hub)

	external := moderation.NewExternalClient(cfg.ModerationAPIURL, cfg.ModerationAPIKey, cfg.ModerationTimeout)
	engine := moderation.NewEngine(moderation.NewRules(cfg.BlockedTerms), external)
	pipeline := chat.NewPipeline(authz, state, engine, messageRepo, reportRepo, hub, audit)

	limiter := ratelimit.NewLimiter()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Prune()
			}
		}
	}()
	httpRule := ratelimit.NewHTTPRule(cfg.HTTPRateLimit, cfg.HTTPRateWindow)
	socketRule := ratelimit.NewSocketRule(cfg.SocketRateLimit, cfg.SocketRateWindow)

	relay := ws.NewRelayHandler(hub, sessions, authz, limiter, socketRule, pipeline, cfg.DefaultChannel)
	authHandler := handlers.NewAuthHandler(userRepo, sessions, state)
	chatHandler := handlers.NewChatHandler(authz, pipeline, messageRepo, hub, cfg.UploadDir)
	moderationHandler := handlers.NewModerationHandler(state, reportRepo)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rateLimited := middleware.RateLimitMiddleware(limiter, httpRule)
	authRequired := middleware.AuthMiddleware(sessions)

	router.POST("/auth/register", rateLimited, authHandler.Register)
	router.POST("/auth/login", rateLimited, authHandler.Login)
	router.POST("/auth/logout", rateLimited, authRequired, authHandler.Logout)

	router.GET("/messages", rateLimited, authRequired, chatHandler.History)
	router.POST("/messages", rateLimited, authRequired, chatHandler.PostMessage)
	router.DELETE("/messages/:id", rateLimited, authRequired, chatHandler.DeleteMessage)

	router.POST("/reports", rateLimited, authRequired, moderationHandler.CreateReport)
	router.PUT("/settings/toxicity", rateLimited, authRequired, moderationHandler.SetToxicity)

	staffOnly := middleware.StaffOnly(authz)
	router.POST("/moderation/ban", rateLimited, authRequired, staffOnly, moderationHandler.Ban)
	router.POST("/moderation/shadowban", rateLimited, authRequired, staffOnly, moderationHandler.ShadowBan)
	router.GET("/moderation/reports", rateLimited, authRequired, staffOnly, moderationHandler.ListReports)

	// The WebSocket handshake carries the token in the query string, so it
	// bypasses the header auth middleware and resolves the session itself.
	router.GET("/ws", relay.Handle)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("chat relay listening port=%s env=%s", cfg.Port, cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}
