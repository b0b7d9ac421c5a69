package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"pinmap-service/internal/auth"
	"pinmap-service/internal/chat"
	"pinmap-service/internal/config"
	"pinmap-service/internal/db"
	"pinmap-service/internal/feed"
	"pinmap-service/internal/handlers"
	"pinmap-service/internal/middleware"
	"pinmap-service/internal/notify"
	"pinmap-service/internal/observability"
	"pinmap-service/internal/rabbitmq"
	"pinmap-service/internal/repositories"
	"pinmap-service/internal/telemetry"
	"pinmap-service/internal/ws"
)

const serviceName = "pinmap-service"

func main() {
	cfg := config.Load()
	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	var bus feed.Bus
	if cfg.NATSURL != "" {
		natsBus, err := feed.DialNATS(cfg.NATSURL, cfg.FeedPrefix)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsBus.Close()
		bus = natsBus
	} else {
		bus = feed.NewBroker()
	}
	bus = observability.InstrumentBus(bus)

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	audit := telemetry.NewAuditEmitter(auditPublisher, "audit.pinmap", serviceName, cfg.Environment)

	if eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		log.Printf("ws event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	messageRepo := repositories.NewMessageRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)
	engagementRepo := repositories.NewEngagementRepo(database)
	contentRepo := repositories.NewContentRepo(database)
	profileRepo := repositories.NewProfileRepo(database)

	authenticator := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, 24*time.Hour)

	dispatcher := notify.NewDispatcher(notificationRepo, contentRepo, bus)
	directory := chat.NewDirectory(messageRepo, notificationRepo, profileRepo)

	conversationHandler := handlers.NewConversationHandler(directory, messageRepo, bus, audit)
	engagementHandler := handlers.NewEngagementHandler(engagementRepo, dispatcher, audit)
	commentHandler := handlers.NewCommentHandler(contentRepo, dispatcher)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, contentRepo, bus)

	conversationWS := ws.NewConversationWebSocketHandler(messageRepo, bus, dispatcher, authenticator)
	inboxWS := ws.NewInboxWebSocketHandler(notificationRepo, contentRepo, bus, authenticator)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(authenticator)

	router.GET("/conversations", authMiddleware, conversationHandler.List)
	router.GET("/conversations/:username/messages", authMiddleware, conversationHandler.History)
	router.DELETE("/conversations/:username", authMiddleware, conversationHandler.Delete)

	router.POST("/engagements/:subject_id/toggle", authMiddleware, engagementHandler.Toggle)
	router.POST("/comments", authMiddleware, commentHandler.Create)

	router.GET("/notifications", authMiddleware, notificationHandler.List)
	router.POST("/notifications/:id/read", authMiddleware, notificationHandler.MarkRead)
	router.POST("/notifications/read_all", authMiddleware, notificationHandler.MarkAllRead)
	router.DELETE("/notifications/:id", authMiddleware, notificationHandler.Delete)
	router.GET("/notifications/:id/target", authMiddleware, notificationHandler.Target)

	router.GET("/ws/conversations/:username", conversationWS.Handle)
	router.GET("/ws/notifications", inboxWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
