// Package permissions gates HTTP routes on the groups carried by the
// request's actor.
package permissions

import (
	"net/http"

	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/httputil"
)

// HasGroup checks if the actor belongs to the required group. An empty
// requirement always passes.
func HasGroup(a *actor.Actor, required string) bool {
	if required == "" {
		return true
	}
	return a.InGroup(required)
}

// HasAnyGroup checks if the actor belongs to any of the required groups.
func HasAnyGroup(a *actor.Actor, required ...string) bool {
	for _, g := range required {
		if HasGroup(a, g) {
			return true
		}
	}
	return false
}

// RequireGroup rejects requests whose actor is not in any of groups.
func RequireGroup(groups ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := actor.FromContext(r.Context())
			if a == nil {
				httputil.Error(w, errors.Unauthorized("authentication required"))
				return
			}
			if !HasAnyGroup(a, groups...) {
				httputil.Error(w, errors.Forbidden("you do not have permission to perform this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireManager is RequireGroup(actor.GroupManagers).
func RequireManager(next http.Handler) http.Handler {
	return RequireGroup(actor.GroupManagers)(next)
}
