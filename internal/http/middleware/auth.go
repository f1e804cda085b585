package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/silicity/silicity-server/internal/domain"
	"github.com/silicity/silicity-server/internal/http/response"
	"github.com/silicity/silicity-server/internal/repository"
	"github.com/silicity/silicity-server/pkg/auth"
	"github.com/silicity/silicity-server/pkg/logger"
)

type ctxKey string

const userKey ctxKey = "current_user"

// Gate authenticates every guarded synchronous call. The token only proves
// identity; role and account status are reloaded from the store each time so
// a suspension or role change takes effect on the very next request.
type Gate struct {
	userRepo repository.UserRepository
	secret   string
}

func NewGate(userRepo repository.UserRepository, accessSecret string) *Gate {
	return &Gate{userRepo: userRepo, secret: accessSecret}
}

func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			response.Fail(w, http.StatusUnauthorized, "You are not signed in")
			return
		}

		claims, err := auth.Parse(strings.TrimPrefix(authz, "Bearer "), g.secret)
		if err != nil {
			response.Fail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user, err := g.userRepo.FindByID(r.Context(), claims.UserID)
		if err != nil {
			response.Error(w, err)
			return
		}
		if user == nil {
			response.Fail(w, http.StatusUnauthorized, "The user behind this token no longer exists")
			return
		}

		if user.AccountStatus == domain.StatusSuspended {
			response.Fail(w, http.StatusForbidden, "Your account has been suspended. Contact support.")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, logger.UserIDKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route on an allow-list, checked against the freshly
// loaded role. Must run after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r)
			if user == nil {
				response.Fail(w, http.StatusUnauthorized, "You are not signed in")
				return
			}
			if !allowed[user.Role] {
				response.Fail(w, http.StatusForbidden, "You don't have permission to do this")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentUser returns the identity attached by RequireAuth, or nil.
func CurrentUser(r *http.Request) *domain.User {
	user, _ := r.Context().Value(userKey).(*domain.User)
	return user
}
