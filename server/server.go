package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"JamFM/cache"
	"JamFM/config"
	"JamFM/core/auth"
	"JamFM/core/music"
	"JamFM/core/resolver"
	"JamFM/db"
	"JamFM/logger"
	"JamFM/model"
	"JamFM/repository"
	"JamFM/storage"
	"JamFM/watcher"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	// 设置服务器超时
	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Connect to the database
	if err := db.Connect(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("Failed to migrate database", logger.ErrorField(err))
	}

	// Connect to Redis
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()
	logger.Info("Successfully connected to Redis")

	// 初始化 MinIO 客户端
	audioStore, err := storage.NewAudioStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	trackRepo := repository.NewGormTrackRepository(db.DB)
	sessionRepo := repository.NewGormSessionRepository(db.DB)
	queueRepo := repository.NewGormQueueRepository(db.DB)
	serverRepo := repository.NewGormServerRepository(db.DB)
	profileRepo := repository.NewGormProfileRepository(db.DB)

	sessionService := music.NewSessionService(sessionRepo, queueRepo, trackRepo, serverRepo)

	urlResolver := resolver.NewResolver(map[model.TrackSource]resolver.SourceResolver{
		model.SourceYouTube: resolver.NewYouTubeResolver(cfg.YouTubeAPIKey),
		model.SourceSpotify: resolver.NewSpotifyResolver(cfg.SpotifyClientID, cfg.SpotifyClientSecret),
	})
	catalog := resolver.NewCatalog(urlResolver, trackRepo)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	sessionCache := cache.NewSessionCache(db.RedisClient, cfg.SessionCacheTTL)

	// 初始化处理器
	apiHandler := NewAPIHandler(sessionService, catalog, profileRepo, tokens, sessionCache, audioStore, cfg)

	// optional drop-directory ingestion
	var dropWatcher *watcher.DropWatcher
	if cfg.DropDir != "" {
		if err := os.MkdirAll(cfg.DropDir, 0755); err != nil {
			logger.Fatal("Failed to create drop directory", logger.ErrorField(err))
		}
		dropWatcher = watcher.NewDropWatcher(cfg.DropDir, audioStore, catalog)
		if err := dropWatcher.Start(context.Background()); err != nil {
			logger.Fatal("Failed to start drop watcher", logger.ErrorField(err))
		}
		defer dropWatcher.Stop()
	}

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// 播放会话相关的API端点
	router.HandleFunc("/api/music/session/start", apiHandler.AuthMiddleware(apiHandler.StartSessionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/music/session/{sessionId}/state", apiHandler.AuthMiddleware(apiHandler.SessionStateHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/music/session/{sessionId}/control", apiHandler.AuthMiddleware(apiHandler.ControlSessionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/music/session/{sessionId}/permissions", apiHandler.AuthMiddleware(apiHandler.SetPermissionHandler)).Methods(http.MethodPut)

	// 播放队列相关的API端点
	router.HandleFunc("/api/music/session/{sessionId}/queue", apiHandler.AuthMiddleware(apiHandler.GetQueueHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/music/session/{sessionId}/queue", apiHandler.AuthMiddleware(apiHandler.EnqueueHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/music/session/{sessionId}/queue", apiHandler.AuthMiddleware(apiHandler.RemoveQueueItemHandler)).Methods(http.MethodDelete)

	// 曲目解析与上传
	router.HandleFunc("/api/music/resolve", apiHandler.AuthMiddleware(apiHandler.ResolveHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/music/upload", apiHandler.AuthMiddleware(apiHandler.UploadTrackHandler)).Methods(http.MethodPost)

	// WebSocket 会话状态推送
	router.HandleFunc("/api/music/session/{sessionId}/ws", apiHandler.SessionEventsHandler)

	srv.Handler = router

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	// 等待中断信号
	<-stop
	logger.Info("Shutting down server...")

	// 创建一个5秒超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}
