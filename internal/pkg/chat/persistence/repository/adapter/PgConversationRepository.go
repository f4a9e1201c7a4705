package adapter

import (
	"context"
	"errors"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"
	repository "shopchat/internal/pkg/chat/persistence/repository/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgConversationRepository struct {
	pool *pgxpool.Pool
}

var _ repository.ConversationRepository = (*PgConversationRepository)(nil)

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

const conversationColumns = `
	id::text, tenant_id::text, kind, vendor_user_id::text, customer_user_id::text,
	admin_takeover, closed_at, last_message_at, created_at,
	vendor_last_read_at, customer_last_read_at
`

func (r *PgConversationRepository) CreateConversation(ctx context.Context, c chat.Conversation) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgConversationRepository: nil pool")
	}
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat.conversation (tenant_id, kind, vendor_user_id, customer_user_id, created_at)
		VALUES (NULLIF($1, '')::uuid, $2, $3::uuid, $4::uuid, $5)
		RETURNING id::text
	`, c.TenantID, c.Kind, c.VendorUserID, c.CustomerUserID, c.CreatedAt).Scan(&id)
	return id, err
}

func (r *PgConversationRepository) FindOpenConversation(ctx context.Context, tenantID, vendorUserID, customerUserID string, kind chat.ConversationKind) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgConversationRepository: nil pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM chat.conversation
		WHERE tenant_id = $1::uuid
		  AND vendor_user_id = $2::uuid
		  AND customer_user_id = $3::uuid
		  AND kind = $4
		  AND closed_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, tenantID, vendorUserID, customerUserID, kind)
	return scanConversation(row)
}

func (r *PgConversationRepository) GetConversationByID(ctx context.Context, id string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgConversationRepository: nil pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM chat.conversation
		WHERE id = $1::uuid
	`, id)
	return scanConversation(row)
}

func (r *PgConversationRepository) ListConversations(ctx context.Context, tenantID string, viewer chat.Viewer, limit int) ([]chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgConversationRepository: nil pool")
	}
	if limit <= 0 {
		limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if viewer.Role.IsAdmin() {
		rows, err = r.pool.Query(ctx, `
			SELECT `+conversationColumns+`
			FROM chat.conversation
			WHERE ($1 = '' OR tenant_id = NULLIF($1, '')::uuid)
			ORDER BY COALESCE(last_message_at, created_at) DESC
			LIMIT $2
		`, tenantID, limit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+conversationColumns+`
			FROM chat.conversation
			WHERE vendor_user_id = $1::uuid OR customer_user_id = $1::uuid
			ORDER BY COALESCE(last_message_at, created_at) DESC
			LIMIT $2
		`, viewer.UserID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []chat.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

// CloseConversation relies on the conditional update for idempotence: two
// racing closes resolve at the row level, only one reports a change.
func (r *PgConversationRepository) CloseConversation(ctx context.Context, id string, closedAt time.Time) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgConversationRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.conversation
		SET closed_at = $2
		WHERE id = $1::uuid AND closed_at IS NULL
	`, id, closedAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PgConversationRepository) SetAdminTakeover(ctx context.Context, id string, enabled bool) error {
	if r == nil || r.pool == nil {
		return errors.New("PgConversationRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.conversation
		SET admin_takeover = $2
		WHERE id = $1::uuid
	`, id, enabled)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgConversationRepository) SaveMessage(ctx context.Context, m chat.Message) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgConversationRepository: nil pool")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO chat.message (conversation_id, sender_id, body, created_at)
		VALUES ($1::uuid, $2::uuid, $3, $4)
		RETURNING id::text
	`, m.ConversationID, m.SenderID, m.Body, m.CreatedAt).Scan(&id)
	if err != nil {
		return "", err
	}

	_, err = tx.Exec(ctx, `
		UPDATE chat.conversation
		SET last_message_at = $2
		WHERE id = $1::uuid
	`, m.ConversationID, m.CreatedAt)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PgConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgConversationRepository: nil pool")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, body, created_at
		FROM chat.message
		WHERE conversation_id = $1::uuid
		ORDER BY created_at ASC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *PgConversationRepository) MarkMessageReceipts(ctx context.Context, conversationID, viewerID string, readAt time.Time) error {
	if r == nil || r.pool == nil {
		return errors.New("PgConversationRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE chat.conversation
		SET vendor_last_read_at   = CASE WHEN vendor_user_id   = $2::uuid THEN $3 ELSE vendor_last_read_at END,
		    customer_last_read_at = CASE WHEN customer_user_id = $2::uuid THEN $3 ELSE customer_last_read_at END
		WHERE id = $1::uuid
	`, conversationID, viewerID, readAt)
	return err
}

func (r *PgConversationRepository) PurgeExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgConversationRepository: nil pool")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		DELETE FROM chat.message m
		USING chat.conversation c
		WHERE m.conversation_id = c.id AND c.closed_at < $1
	`, cutoff)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		DELETE FROM chat.conversation
		WHERE closed_at < $1
		RETURNING id::text
	`, cutoff)
	if err != nil {
		return nil, err
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func scanConversation(row pgx.Row) (*chat.Conversation, error) {
	var (
		c        chat.Conversation
		tenantID *string
	)
	err := row.Scan(
		&c.ID, &tenantID, &c.Kind, &c.VendorUserID, &c.CustomerUserID,
		&c.AdminTakeover, &c.ClosedAt, &c.LastMessageAt, &c.CreatedAt,
		&c.VendorLastReadAt, &c.CustomerLastReadAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if tenantID != nil {
		c.TenantID = *tenantID
	}
	return &c, nil
}
