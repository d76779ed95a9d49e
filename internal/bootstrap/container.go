package bootstrap

import (
	"context"
	"log"
	"time"

	"grace-checkin-bot/internal/catalog"
	"grace-checkin-bot/internal/config"
	"grace-checkin-bot/internal/controller"
	"grace-checkin-bot/internal/handler"
	"grace-checkin-bot/internal/pkg/logger"
	"grace-checkin-bot/internal/repository/memory"
	"grace-checkin-bot/internal/service"
	"grace-checkin-bot/internal/websocket"
	"grace-checkin-bot/pkg/analysis"
	"grace-checkin-bot/pkg/pipeline"

	pktNats "grace-checkin-bot/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	StatusController controller.StatusController

	// Background Services (Exposed for main.go to run)
	RouterService service.IRouterService

	// WebSockets & Gateway
	GatewayHandler *handler.GatewayHandler
	WebSocketHub   *websocket.Hub
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// Dimension catalog and optional circumplex map
	states, err := catalog.Load(cfg.Journal.StatesPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load states catalog: %v", err)
	}

	var circumplex *analysis.Circumplex
	if cfg.Journal.CircumplexPath != "" {
		circumplex, err = analysis.Load(cfg.Journal.CircumplexPath)
		if err != nil {
			log.Printf("[WARN] Failed to load circumplex map, analysis disabled: %v", err)
			circumplex = nil
		}
	}

	// In-memory session storage and wake tracking
	sessionRepo := memory.NewSessionRepository()
	wakeRegistry := memory.NewWakeRegistry(time.Duration(cfg.Bot.WakeTimeoutSecs) * time.Second)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.GatewayLogFilePath)
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// Write-back pipeline
	processor := pipeline.NewProcessor(pipeline.Options{
		RepoRoot:      cfg.Journal.RepoRoot,
		DataPath:      cfg.Journal.DataPath,
		PlaintextPath: cfg.Journal.PlaintextPath,
		KeyPath:       cfg.Journal.KeyPath,
		KeyEnvVar:     cfg.Journal.KeyEnvVar,
		KeyLabel:      cfg.Journal.KeyLabel,
		PushRemote:    cfg.Journal.PushRemote,
		PushBranch:    cfg.Journal.PushBranch,
	})
	syncer := pipeline.NewGitSyncer(cfg.Journal.RepoRoot)

	// 3. Services
	authService := service.NewAuthService(cfg, wsHub, sysLogger)
	finalizerService := service.NewFinalizerService(
		states,
		circumplex,
		sessionRepo,
		wsHub,
		processor,
		pubSub,
		sysLogger,
	)
	checkinService := service.NewCheckinService(
		states,
		sessionRepo,
		wsHub,
		finalizerService,
		sysLogger,
	)
	syncService := service.NewSyncService(
		cfg,
		sessionRepo,
		wsHub,
		syncer,
		pubSub,
		sysLogger,
	)

	routerService := service.NewRouterService(
		cfg,
		wakeRegistry,
		sessionRepo,
		authService,
		checkinService,
		syncService,
		processor,
		processor, // StatusProvider
		wsHub,
		pubSub,
		natsPub,
		sysLogger,
	)

	// Inbound chat messages flow from connected bridges into the router.
	wsHub.SetInboundHandler(routerService.HandleMessage)

	// Handler
	gatewayHandler := handler.NewGatewayHandler(wsHub, cfg.Keys.JWTSecret, wsLogger)

	// 4. Controllers
	return &Container{
		GatewayHandler:   gatewayHandler,
		WebSocketHub:     wsHub,
		StatusController: controller.NewStatusController(processor),

		RouterService: routerService,
	}
}
