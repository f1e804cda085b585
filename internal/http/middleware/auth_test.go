package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silicity/silicity-server/internal/domain"
	mw "github.com/silicity/silicity-server/internal/http/middleware"
	"github.com/silicity/silicity-server/pkg/auth"
)

const testSecret = "test-access-secret"

type stubUserRepo struct {
	users map[int64]*domain.User
}

func (s *stubUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) { return u, nil }
func (s *stubUserRepo) FindByEmail(context.Context, string) (*domain.User, error)      { return nil, nil }
func (s *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	return s.users[id], nil
}
func (s *stubUserRepo) MarkVerified(context.Context, int64) error { return nil }
func (s *stubUserRepo) SetVerificationChallenge(context.Context, int64, string, time.Time) error {
	return nil
}
func (s *stubUserRepo) IncrementVerificationAttempts(context.Context, int64) error { return nil }
func (s *stubUserRepo) SetResetChallenge(context.Context, int64, string, time.Time) error {
	return nil
}
func (s *stubUserRepo) ClearResetChallenge(context.Context, int64) error { return nil }
func (s *stubUserRepo) FindByResetChallenge(context.Context, string, string) (*domain.User, error) {
	return nil, nil
}
func (s *stubUserRepo) UpdatePassword(context.Context, int64, string) error { return nil }

func gateWith(users map[int64]*domain.User) *mw.Gate {
	return mw.NewGate(&stubUserRepo{users: users}, testSecret)
}

func protected(t *testing.T, gate *mw.Gate, token string, extra ...func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	t.Helper()

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := mw.CurrentUser(r)
		require.NotNil(t, user)
		w.WriteHeader(http.StatusOK)
	})
	for i := len(extra) - 1; i >= 0; i-- {
		handler = extra[i](handler)
	}
	handler = gate.RequireAuth(handler)

	req := httptest.NewRequest(http.MethodGet, "/groups", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := auth.NewAccessToken(userID, testSecret, time.Minute)
	require.NoError(t, err)
	return tok
}

func TestRequireAuth_NoToken(t *testing.T) {
	gate := gateWith(nil)
	rec := protected(t, gate, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_BadToken(t *testing.T) {
	gate := gateWith(nil)
	rec := protected(t, gate, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	gate := gateWith(nil)
	tok, err := auth.NewAccessToken(1, testSecret, -time.Minute)
	require.NoError(t, err)
	rec := protected(t, gate, tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	gate := gateWith(map[int64]*domain.User{})
	rec := protected(t, gate, token(t, 1))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_SuspendedUser(t *testing.T) {
	gate := gateWith(map[int64]*domain.User{
		1: {ID: 1, AccountStatus: domain.StatusSuspended},
	})
	rec := protected(t, gate, token(t, 1))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAuth_ActiveUser(t *testing.T) {
	gate := gateWith(map[int64]*domain.User{
		1: {ID: 1, Role: domain.RoleStudent, AccountStatus: domain.StatusActive},
	})
	rec := protected(t, gate, token(t, 1))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_Enforced(t *testing.T) {
	gate := gateWith(map[int64]*domain.User{
		1: {ID: 1, Role: domain.RoleStudent, AccountStatus: domain.StatusActive},
		2: {ID: 2, Role: domain.RoleAdmin, AccountStatus: domain.StatusActive},
	})

	rec := protected(t, gate, token(t, 1), mw.RequireRole(domain.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = protected(t, gate, token(t, 2), mw.RequireRole(domain.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
}
