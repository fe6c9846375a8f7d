// Package actor identifies the user performing an action. The JWT
// middleware places an Actor in the request context; services read it
// back to decide manager overrides and row visibility.
package actor

import (
	"context"
	"fmt"
	"slices"
)

// Group names understood by the stock service.
const (
	GroupManagers    = "managers"
	GroupShopUsers   = "shop_users"
	GroupReceiveMail = "receive_mail"
)

// Actor represents the entity performing an action in the system.
type Actor struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Groups   []string `json:"groups"`
}

// InGroup reports whether the actor belongs to group.
func (a *Actor) InGroup(group string) bool {
	if a == nil {
		return false
	}
	return slices.Contains(a.Groups, group)
}

// IsManager returns true for members of the managers group.
func (a *Actor) IsManager() bool {
	return a.InGroup(GroupManagers)
}

// IsShopUser returns true for members of the shop_users group.
func (a *Actor) IsShopUser() bool {
	return a.InGroup(GroupShopUsers)
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.Username, a.ID)
}

type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., CLI or scheduled operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// SystemActor returns an Actor representing the admin tooling itself. It
// carries manager rights.
func SystemActor() *Actor {
	return &Actor{
		ID:       "00000000-0000-0000-0000-000000000000",
		Username: "system",
		Groups:   []string{GroupManagers},
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == "00000000-0000-0000-0000-000000000000"
}
