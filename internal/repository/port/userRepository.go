package repository

import (
	"context"

	chat "shopchat/internal/pkg/chat/application/domain"
)

// User is a platform account as the chat service sees it: identity, surface
// role and the tenant (shop) it belongs to. Vendors and customers are scoped
// to a tenant; admins are platform-wide and carry no tenant.
type User struct {
	ID          string    `db:"id"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	Role        chat.Role `db:"role"`
	TenantID    string    `db:"tenant_id"`
}

// UserRepository resolves platform accounts for authentication. Lookups
// return (nil, nil) for unknown ids/tokens.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByToken(ctx context.Context, token string) (*User, error)
}
