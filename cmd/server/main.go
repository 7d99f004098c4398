package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/relaychat/server/internal/auth"
	"github.com/relaychat/server/internal/chatserver"
	"github.com/relaychat/server/internal/config"
	"github.com/relaychat/server/internal/hub"
	"github.com/relaychat/server/internal/logging"
	"github.com/relaychat/server/internal/redisbroker"
	"github.com/relaychat/server/internal/session"
	"github.com/relaychat/server/internal/wsapi"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	redisClient := redisbroker.NewClient(redisbroker.ClientConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisbroker.Ping(pingCtx, redisClient); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("could not reach redis")
	}
	cancel()

	broker := redisbroker.New(redisClient, logging.Component(log, "broker"))

	scriptCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	scripts, err := broker.LoadScripts(scriptCtx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load membership scripts")
	}

	h, hubInbound := hub.New(broker, scripts, logging.Component(log, "hub"))

	chatServerLog := logging.Component(log, "chatserver")
	server, chatHandle := chatserver.New(h, cfg.DefaultRoom, chatServerLog)

	ctx, stopRun := context.WithCancel(context.Background())
	go server.Run(ctx, hubInbound)

	var authenticator auth.Authenticator
	if cfg.JWTSecret != "" {
		authenticator = auth.NewJWTAuthenticator(cfg.JWTSecret)
	} else {
		log.Warn().Msg("JWT_SECRET unset, falling back to a static token authenticator")
		authenticator = auth.StaticAuthenticator{}
	}

	sessionCfg := session.Config{
		DefaultRoom:       cfg.DefaultRoom,
		HeartbeatInterval: cfg.HeartbeatInterval,
		HeartbeatTimeout:  cfg.HeartbeatTimeout,
	}
	wsHandler := wsapi.NewHandler(authenticator, chatHandle, sessionCfg, logging.Component(log, "session"))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	log.Info().Strs("origins", cfg.CorsOrigins).Msg("cors allowed origins")
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", wsapi.HealthCheck)
	r.Get("/ws/{token}", wsHandler.ServeWS)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	httpServer := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Info().Str("addr", addr).Msg("relaychat server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	chatHandle.Close()
	stopRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
