// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/highroll-dev/highroll/internal/config"
	"github.com/highroll-dev/highroll/internal/engine"
	"github.com/highroll-dev/highroll/internal/eventlog"
	"github.com/highroll-dev/highroll/internal/game"
	"github.com/highroll-dev/highroll/internal/handlers"
	"github.com/highroll-dev/highroll/internal/middleware"
	"github.com/highroll-dev/highroll/internal/pubsub"
)

func main() {
	cfg := config.FromEnv()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	ctx := context.Background()

	pool, err := eventlog.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect event log: %v", err)
	}
	defer pool.Close()
	store := eventlog.NewStore(pool)

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("connect redis at %s: %v", cfg.RedisAddr, err)
	}
	events := pubsub.New(rdb)

	registry := engine.NewRegistry(store, events, engine.Options{
		Rules:        game.Rules{TurnTimeoutSeconds: cfg.TurnTimeoutSeconds},
		TickInterval: cfg.TickInterval,
		Logger:       logger,
	})
	defer registry.Close()

	api := &handlers.API{Sender: registry, Logger: logger}

	logged := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()
	mux.Handle("/game/create", logged(http.HandlerFunc(api.CreateGameHandler)))
	mux.Handle("/game/start", logged(http.HandlerFunc(api.StartGameHandler)))
	mux.Handle("/game/roll", logged(http.HandlerFunc(api.RollDiceHandler)))
	mux.Handle("/game/events/ws", logged(handlers.EventStreamHandler(logger, events)))

	addr := ":" + cfg.Port
	logger.Infof("highroll server running on %s (turn timeout %ds)", addr, cfg.TurnTimeoutSeconds)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
