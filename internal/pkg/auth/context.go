package auth

import (
	chat "shopchat/internal/pkg/chat/application/domain"
)

// Context is the authenticated caller, resolved once by the middleware and
// passed explicitly into every handler. Keeping it a plain value makes the
// gateway pipeline testable with constructed callers.
type Context struct {
	UserID   string
	Role     chat.Role
	TenantID string
}

func (c Context) IsAdmin() bool { return c.Role.IsAdmin() }

func (c Context) IsVendor() bool { return c.Role.IsVendor() }

// Viewer narrows the context to what the closure evaluator needs.
func (c Context) Viewer() chat.Viewer {
	return chat.Viewer{UserID: c.UserID, Role: c.Role}
}
