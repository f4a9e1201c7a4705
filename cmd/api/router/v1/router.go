package v1

import (
	cacheport "shopchat/internal/infrastructure/cache/port"
	qport "shopchat/internal/infrastructure/queue/port"
	"shopchat/internal/infrastructure/realtime"
	"shopchat/internal/pkg/auth"
	chat "shopchat/internal/pkg/chat/application/domain"
	httpHandler "shopchat/internal/pkg/chat/presentation/http"
	userAdapter "shopchat/internal/repository/adapter"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1. Every route
// in the group sits behind the bearer-token auth middleware.
func RegisterRoutes(r *gin.Engine, pool *pgxpool.Pool, cache cacheport.Cache, queue qport.Client, rt *realtime.Router, policy chat.RetentionPolicy) {
	users := userAdapter.NewPgUserRepository(pool)

	v1 := r.Group("/api/v1")
	v1.Use(auth.Middleware(users))

	httpHandler.RegisterRoutes(v1, pool, cache, queue, rt, policy)
}
