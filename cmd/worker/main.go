package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"shopchat/internal/infrastructure/database"
	queueAdapter "shopchat/internal/infrastructure/queue/adapter"
	chat "shopchat/internal/pkg/chat/application/domain"
	"shopchat/internal/pkg/chat/application/task"
	"shopchat/internal/pkg/chat/application/usecase"
	repoAdapter "shopchat/internal/pkg/chat/persistence/repository/adapter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// The worker consumes the chat side-channel queue (read receipts,
// notifications, purge sweeps) and runs the periodic retention sweep that the
// request-path purger only approximates.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg(".env file not found or could not be loaded")
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	policy, err := chat.PolicyFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid retention policy configuration")
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	pool, err := database.NewPoolFromEnv(connectCtx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	srv, err := queueAdapter.NewAsynqServer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start queue server")
	}
	task.RegisterSideChannelTasks(srv, pool, policy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runSweepLoop(ctx, pool, policy)

	log.Info().Msg("worker started")
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("queue server exited")
	}
}

// runSweepLoop purges expired conversations on a fixed interval
// (CHAT_PURGE_SWEEP_INTERVAL minutes, default 60) independently of request
// traffic, so retention holds on an idle deployment too.
func runSweepLoop(ctx context.Context, pool *pgxpool.Pool, policy chat.RetentionPolicy) {
	interval := time.Hour
	if v := strings.TrimSpace(os.Getenv("CHAT_PURGE_SWEEP_INTERVAL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Minute
		}
	}

	purger := usecase.NewRetentionPurger(repoAdapter.NewPgConversationRepository(pool), policy)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := purger.Run(sweepCtx)
			cancel()
			if err != nil {
				log.Warn().Err(err).Msg("scheduled retention sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("purged", n).Msg("scheduled retention sweep removed expired conversations")
			}
		}
	}
}
