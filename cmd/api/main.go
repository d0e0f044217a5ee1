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
	"github.com/suPer8Hu/roadmaster/internal/auth"
	"github.com/suPer8Hu/roadmaster/internal/config"
	"github.com/suPer8Hu/roadmaster/internal/db"
	"github.com/suPer8Hu/roadmaster/internal/haul"
	"github.com/suPer8Hu/roadmaster/internal/httpapi"
	"github.com/suPer8Hu/roadmaster/internal/httpapi/handlers"
	"github.com/suPer8Hu/roadmaster/internal/logger"
	"github.com/suPer8Hu/roadmaster/internal/observe"
	"github.com/suPer8Hu/roadmaster/internal/ratelimit"
	"github.com/suPer8Hu/roadmaster/internal/store/rabbitmq"
	"github.com/suPer8Hu/roadmaster/internal/store/redisstore"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.L()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := observe.Init(observe.SentryOptions{
		Dsn:         cfg.SentryDSN,
		Name:        "roadmaster-api",
		Environment: cfg.AppEnv,
	}); err != nil {
		log.WithError(err).Warn("sentry init failed, errors will only be logged")
	}
	defer observe.Flush()

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := gdb.AutoMigrate(haul.Models()...); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// counters live in redis so every api replica shares one budget
	var counters ratelimit.CounterStore
	if cfg.RedisAddr != "" {
		rs, err := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, using in-process rate limit counters")
		} else {
			defer rs.Close()
			counters = rs
		}
	}
	if counters == nil {
		counters = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.New(counters, cfg.Budgets())

	var events haul.Events
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.WithError(err).Warn("rabbitmq unavailable, job.completed events disabled")
		} else {
			defer pub.Close()
			events = pub
		}
	}

	repo := haul.NewRepo(gdb)
	svc := haul.NewService(repo, events)
	sessions := auth.NewJWTSessions(cfg.JWTSecret)
	h := handlers.NewHandler(svc, auth.NewResolver(sessions, repo), limiter)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(h, sessions, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("api listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("api shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
}
