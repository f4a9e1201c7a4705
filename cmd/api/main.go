package main

import (
	"context"
	"net/http"
	"os"
	"time"

	v1 "shopchat/cmd/api/router/v1"
	cacheAdapter "shopchat/internal/infrastructure/cache/adapter"
	cacheport "shopchat/internal/infrastructure/cache/port"
	"shopchat/internal/infrastructure/database"
	queueAdapter "shopchat/internal/infrastructure/queue/adapter"
	qport "shopchat/internal/infrastructure/queue/port"
	"shopchat/internal/infrastructure/realtime"
	chat "shopchat/internal/pkg/chat/application/domain"
	"shopchat/internal/pkg/chat/application/task"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg(".env file not found or could not be loaded")
	}
	setupLogging()

	policy, err := chat.PolicyFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid retention policy configuration")
	}

	// Connect to the database on startup
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := database.NewPoolFromEnv(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	// Redis-backed collaborators are optional: without them the service runs
	// with no snapshot cache and no side-channel queue.
	var cache cacheport.Cache
	if c, err := cacheAdapter.NewRedisAdapter(); err != nil {
		log.Warn().Err(err).Msg("snapshot cache disabled")
	} else {
		cache = c
		defer func() { _ = c.Close() }()
	}

	var queue qport.Client
	if q, err := queueAdapter.NewAsynqClientFromEnv(); err != nil {
		log.Warn().Err(err).Msg("side-channel queue disabled")
	} else {
		queue = q
		defer func() { _ = q.Close() }()
		// Kick off a deep sweep so a redeploy does not leave expired
		// conversations lingering until the first request-path purge.
		task.EnqueuePurgeSweep(ctx, queue, time.Hour)
	}

	rt := realtime.NewRouter()
	defer rt.Close()

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})

	v1.RegisterRoutes(r, pool, cache, queue, rt, policy)

	// Start HTTP server (blocks until shutdown)
	if err := r.Run(); err != nil {
		log.Fatal().Err(err).Msg("http server exited")
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}
}
