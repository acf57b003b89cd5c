package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"

	"github.com/yourusername/vocab-party-api/internal/config"
	"github.com/yourusername/vocab-party-api/internal/handler"
	"github.com/yourusername/vocab-party-api/internal/middleware"
	"github.com/yourusername/vocab-party-api/internal/repository/memory"
	pgRepo "github.com/yourusername/vocab-party-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/vocab-party-api/internal/repository/redis"
	"github.com/yourusername/vocab-party-api/internal/service"
	"github.com/yourusername/vocab-party-api/internal/service/partymanager"
	ws "github.com/yourusername/vocab-party-api/internal/websocket"
	"github.com/yourusername/vocab-party-api/pkg/auth"
	"github.com/yourusername/vocab-party-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.DefaultConfigPath
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	deps := service.PartyManagerDeps{
		Store: memory.NewPartyStore(),
		Config: &partymanager.Config{
			MinTimerSec:      cfg.Party.MinTimerSec,
			MaxTimerSec:      cfg.Party.MaxTimerSec,
			MaxQuestions:     cfg.Party.MaxQuestions,
			ChoiceOptions:    cfg.Party.ChoiceOptions,
			CreditTTL:        cfg.Party.CreditTTL(),
			AutoAdvance:      cfg.Party.AutoAdvance,
			AutoAdvanceGrace: cfg.Party.AutoAdvanceGrace(),
			EndedRetention:   cfg.Party.EndedRetention(),
		},
	}

	// PostgreSQL: источник уроков, журнал очков, архив
	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(cfg.Database)
		if err != nil {
			log.Printf("Failed to connect to database: %v", err)
			os.Exit(1)
		}
		if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
			log.Printf("Failed to migrate database: %v", err)
			os.Exit(1)
		}
		deps.Questions = pgRepo.NewLessonQuestionRepo(db)
		deps.Ledger = pgRepo.NewPointsLedgerRepo(db)
		if cfg.Party.ArchiveEnabled {
			deps.Archive = pgRepo.NewPartyArchiveRepo(db)
		}
		defer func() {
			if sqlDB, err := database.GetSQLDB(db); err == nil {
				sqlDB.Close()
			}
		}()
	} else {
		log.Println("Warning: database is disabled, lessons are served from an empty in-memory catalog")
		deps.Questions = memory.NewQuestionCatalog()
	}

	// Redis: защита начислений, лимиты, ретрансляция событий между инстансами
	var (
		redisClient goredis.UniversalClient
		limiter     *middleware.RateLimiter
		brokerOpts  = []ws.BrokerOption{ws.WithBufferSize(cfg.WebSocket.SubscriberBuffer)}
		pubSub      ws.PubSubProvider
	)
	if cfg.Redis.IsConfigured() {
		redisClient, err = database.NewUniversalRedisClient(cfg.Redis)
		if err != nil {
			log.Printf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		cacheRepo, err := redisRepo.NewCacheRepo(redisClient, cfg.Redis.KeyPrefix)
		if err != nil {
			log.Printf("Failed to create cache repository: %v", err)
			os.Exit(1)
		}
		deps.Cache = cacheRepo
		limiter = middleware.NewRateLimiter(redisClient)

		if cfg.WebSocket.Cluster.Enabled {
			redisPubSub, err := ws.NewRedisPubSub(redisClient)
			if err != nil {
				log.Printf("Failed to create Redis PubSub: %v", err)
				os.Exit(1)
			}
			pubSub = redisPubSub
			brokerOpts = append(brokerOpts, ws.WithClusterRelay(redisPubSub, cfg.WebSocket.Cluster.BroadcastChannel, cfg.WebSocket.Cluster.InstanceID))
		}
	}

	broker := ws.NewBroker(brokerOpts...)
	if pubSub != nil {
		if err := broker.StartRelay(); err != nil {
			log.Printf("Failed to start cluster relay: %v", err)
			os.Exit(1)
		}
		log.Printf("Cluster relay enabled, instance %s", broker.InstanceID())
	}
	deps.Publisher = broker

	partyManager := service.NewPartyManager(deps)
	var autoAdvancer *partymanager.AutoAdvancer
	if cfg.Party.AutoAdvance {
		autoAdvancer = partymanager.NewAutoAdvancer(partyManager, cfg.Party.AutoAdvanceGrace())
		partyManager.SetQuestionObserver(autoAdvancer)
	}
	partyQuery := service.NewPartyQueryService(deps.Store, partyManager)

	jwtService, err := auth.NewJWTService(cfg.Auth.JWTSecret)
	if err != nil {
		log.Printf("Failed to create JWT service: %v", err)
		os.Exit(1)
	}
	identity := middleware.NewIdentityMiddleware(jwtService, cfg.Auth.HostRoles)

	partyHandler := handler.NewPartyHandler(partyManager, partyQuery)
	wsHandler := handler.NewWSHandler(broker, partyQuery, cfg.Server.AllowedOrigins)

	// Инициализируем роутер Gin
	router := gin.Default()
	if gin.Mode() == gin.ReleaseMode {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
		log.Printf("Warning: failed to set trusted proxies: %v", err)
	}

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.Server.AllowedOrigins) == 0 || cfg.Server.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	partyHandler.RegisterRoutes(api, identity, limiter)

	// WebSocket маршруты
	router.GET("/ws", identity.RequireIdentity(), wsHandler.HandleConnection)
	router.GET("/ws/metrics", gin.WrapF(ws.WebSocketMetricsHandler(broker)))
	router.GET("/ws/health", gin.WrapF(ws.WebSocketHealthCheckHandler(broker)))

	// HTTP сервер с тайм-аутами
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Таймеры останавливаются до закрытия брокера
	if autoAdvancer != nil {
		autoAdvancer.Stop()
	}
	broker.Close()
	if pubSub != nil {
		if err := pubSub.Close(); err != nil {
			log.Printf("Error closing PubSub provider: %v", err)
		}
	}
	// Дожидаемся фоновой архивации завершённых игр
	partyManager.Wait()

	log.Println("Server exited properly")
}

