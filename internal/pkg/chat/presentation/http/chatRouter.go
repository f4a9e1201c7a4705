package http

import (
	"os"
	"strconv"
	"strings"
	"time"

	cacheport "shopchat/internal/infrastructure/cache/port"
	qport "shopchat/internal/infrastructure/queue/port"
	"shopchat/internal/infrastructure/realtime"
	"shopchat/internal/pkg/auth"
	chat "shopchat/internal/pkg/chat/application/domain"
	"shopchat/internal/pkg/chat/application/usecase"
	"shopchat/internal/pkg/chat/persistence/repository/adapter"
	"shopchat/internal/pkg/chat/presentation/controller"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes registers conversation endpoints under the given router
// group. It wires the shared pipeline once and hands it to the per-endpoint
// controllers.
func RegisterRoutes(g *gin.RouterGroup, pool *pgxpool.Pool, cache cacheport.Cache, queue qport.Client, rt *realtime.Router, policy chat.RetentionPolicy) {
	repo := adapter.NewPgConversationRepository(pool)
	snapshots := usecase.NewSnapshotCache(cache, snapshotTTLFromEnv())
	purger := usecase.NewRetentionPurger(repo, policy)
	purger.Snapshots = snapshots
	pipeline := usecase.NewPipeline(repo, policy, purger, snapshots)

	listCtl := controller.NewListConversationsController(pipeline)
	openCtl := controller.NewOpenConversationController(usecase.NewOpenConversationUseCase(repo), policy)
	getCtl := controller.NewGetMessagesController(pipeline, queue)
	sendCtl := controller.NewSendMessageController(pipeline, queue, rt)
	closeCtl := controller.NewCloseConversationController(pipeline, rt)
	takeoverCtl := controller.NewTakeoverController(pipeline)
	socketCtl := controller.NewChatSocketController(pipeline, rt)

	conv := g.Group("/conversations")

	conv.GET("", listCtl.Handle())
	conv.POST("", openCtl.Handle())
	conv.GET("/ws", socketCtl.Handle())
	conv.GET("/:conversationId/messages", getCtl.Handle())
	conv.POST("/:conversationId/messages", sendCtl.Handle())
	conv.POST("/:conversationId/close", closeCtl.Handle())
	conv.POST("/:conversationId/takeover", auth.RequireRoles(chat.RoleAdmin), takeoverCtl.Handle())
}

// snapshotTTLFromEnv reads CHAT_SNAPSHOT_CACHE_TTL (seconds, default 30,
// 0 disables the cache).
func snapshotTTLFromEnv() time.Duration {
	v := strings.TrimSpace(os.Getenv("CHAT_SNAPSHOT_CACHE_TTL"))
	if v == "" {
		return 30 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 30 * time.Second
	}
	return time.Duration(n) * time.Second
}
