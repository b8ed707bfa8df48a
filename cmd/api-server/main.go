package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/phuslu/log"

	"shiori/internal/auth"
	"shiori/internal/events"
	"shiori/internal/manga"
	"shiori/internal/mangadex"
	"shiori/pkg/database"
	"shiori/pkg/utils"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("SHIORI_CONFIG"), "path to a TOML config file")
	flag.Parse()

	cfg, err := utils.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	utils.SetupLogger(cfg.Logging)

	db := database.MustOpen(cfg.Database)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), utils.GinLogger())
	_ = router.SetTrustedProxies(cfg.Server.TrustedProxies)

	hub := events.NewHub()
	router.GET("/ws", events.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "not_ready",
				"dbError":    err.Error(),
				"tcpClients": stats.TCPClients,
				"wsClients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"db":         "ok",
			"tcpClients": stats.TCPClients,
			"wsClients":  stats.WSClients,
		})
	})

	router.GET("/debug", func(c *gin.Context) {
		stats := hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db":       cfg.Database.Path,
			"mangadex": cfg.MangaDex.BaseURL,
			"events":   stats,
		})
	})

	// Auth
	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration(),
	}
	admin := auth.Admin{
		Username:     cfg.Auth.AdminUsername,
		PasswordHash: cfg.Auth.AdminPasswordHash,
	}
	auth.NewHandler(admin, tokenSvc).RegisterRoutes(router.Group("/auth"))

	var writeGuard []gin.HandlerFunc
	if admin.Enabled() {
		writeGuard = append(writeGuard, auth.AdminMiddleware(tokenSvc))
	} else {
		log.Warn().Msg("no admin credentials configured, catalog writes are open")
	}

	// Catalog
	mangaHandler := manga.NewHandler(manga.NewRepo(db), hub)
	mangaHandler.RegisterRoutes(router.Group("/api/manga"), writeGuard...)

	// MangaDex lookups
	client := mangadex.NewClient(cfg.MangaDex.BaseURL, cfg.MangaDex.UserAgent, cfg.MangaDex.TimeoutDuration())
	mangadex.NewHandler(mangadex.NewService(client)).RegisterRoutes(router.Group("/api/md"))

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	var tcpSrv *events.Server
	if cfg.Events.TCPAddr != "" {
		tcpSrv = events.NewServer(cfg.Events.TCPAddr, hub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tcpSrv.Run(); err != nil {
				errCh <- err
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	if tcpSrv != nil {
		if err := tcpSrv.Close(); err != nil {
			log.Error().Err(err).Msg("tcp shutdown error")
		}
	}
	hub.CloseAll()

	wg.Wait()
	log.Info().Msg("servers stopped")
}
