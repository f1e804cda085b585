package service_test

import (
	"context"
	"fmt"
	"time"

	"github.com/silicity/silicity-server/internal/domain"
	"github.com/silicity/silicity-server/pkg/config"
)

// ---------- Mocks ----------

type mockUserRepo struct {
	nextID int64
	users  map[int64]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{nextID: 1, users: make(map[int64]*domain.User)}
}

func (m *mockUserRepo) add(u *domain.User) *domain.User {
	u.ID = m.nextID
	m.nextID++
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	cp := *u
	return m.add(&cp), nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) MarkVerified(_ context.Context, id int64) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d not found", id)
	}
	u.IsVerified = true
	u.VerificationCode = ""
	u.VerificationExpires = nil
	u.VerificationAttempts = 0
	return nil
}

func (m *mockUserRepo) SetVerificationChallenge(_ context.Context, id int64, code string, expires time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d not found", id)
	}
	u.VerificationCode = code
	u.VerificationExpires = &expires
	u.VerificationAttempts = 0
	return nil
}

func (m *mockUserRepo) IncrementVerificationAttempts(_ context.Context, id int64) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d not found", id)
	}
	u.VerificationAttempts++
	return nil
}

func (m *mockUserRepo) SetResetChallenge(_ context.Context, id int64, tokenHash string, expires time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d not found", id)
	}
	u.ResetTokenHash = tokenHash
	u.ResetExpires = &expires
	return nil
}

func (m *mockUserRepo) ClearResetChallenge(_ context.Context, id int64) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d not found", id)
	}
	u.ResetTokenHash = ""
	u.ResetExpires = nil
	return nil
}

func (m *mockUserRepo) FindByResetChallenge(_ context.Context, email, tokenHash string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email != email || u.ResetTokenHash == "" || u.ResetTokenHash != tokenHash {
			continue
		}
		if u.ResetExpires == nil || time.Now().After(*u.ResetExpires) {
			continue
		}
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d not found", id)
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = ""
	u.ResetExpires = nil
	return nil
}

type mockGroupRepo struct {
	nextID int64
	groups map[int64]*domain.Group
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{nextID: 1, groups: make(map[int64]*domain.Group)}
}

func (m *mockGroupRepo) add(g *domain.Group) *domain.Group {
	g.ID = m.nextID
	m.nextID++
	m.groups[g.ID] = g
	return g
}

func (m *mockGroupRepo) Create(_ context.Context, g *domain.Group) (*domain.Group, error) {
	cp := *g
	cp.Members = append([]int64(nil), g.Members...)
	created := m.add(&cp)
	out := *created
	return &out, nil
}

func (m *mockGroupRepo) FindByID(_ context.Context, id int64) (*domain.Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	cp.Members = append([]int64(nil), g.Members...)
	return &cp, nil
}

func (m *mockGroupRepo) ListOpenPublic(_ context.Context) ([]domain.Group, error) {
	var out []domain.Group
	for _, g := range m.groups {
		if g.Status == domain.GroupOpen && g.Visibility == domain.VisibilityPublic {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *mockGroupRepo) AddMember(_ context.Context, groupID, userID int64) error {
	g, ok := m.groups[groupID]
	if !ok {
		return fmt.Errorf("group %d not found", groupID)
	}
	if !g.IsMember(userID) {
		g.Members = append(g.Members, userID)
	}
	return nil
}

func (m *mockGroupRepo) RemoveMember(_ context.Context, groupID, userID int64) error {
	g, ok := m.groups[groupID]
	if !ok {
		return fmt.Errorf("group %d not found", groupID)
	}
	for i, id := range g.Members {
		if id == userID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockGroupRepo) SetStatusVisibility(_ context.Context, groupID int64, status, visibility string) error {
	g, ok := m.groups[groupID]
	if !ok {
		return fmt.Errorf("group %d not found", groupID)
	}
	g.Status = status
	g.Visibility = visibility
	return nil
}

type mockMessageRepo struct {
	nextID   int64
	messages []domain.Message
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{nextID: 1}
}

func (m *mockMessageRepo) Create(_ context.Context, groupID, authorID int64, body string) (*domain.Message, error) {
	msg := domain.Message{
		ID:        m.nextID,
		GroupID:   groupID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	m.nextID++
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *mockMessageRepo) ListByGroup(_ context.Context, groupID int64) ([]domain.EnrichedMessage, error) {
	var out []domain.EnrichedMessage
	for _, msg := range m.messages {
		if msg.GroupID == groupID {
			out = append(out, domain.EnrichedMessage{Message: msg})
		}
	}
	return out, nil
}

type mockMailer struct {
	verifyCodes []string
	verifyTo    []string
	resetURLs   []string
	changedTo   []string
	verifyErr   error
	resetErr    error
}

func (m *mockMailer) SendVerificationEmail(toEmail, _, _, code string) error {
	if m.verifyErr != nil {
		return m.verifyErr
	}
	m.verifyTo = append(m.verifyTo, toEmail)
	m.verifyCodes = append(m.verifyCodes, code)
	return nil
}

func (m *mockMailer) SendPasswordResetEmail(toEmail, _, resetURL string, _ int) error {
	if m.resetErr != nil {
		return m.resetErr
	}
	m.resetURLs = append(m.resetURLs, resetURL)
	return nil
}

func (m *mockMailer) SendPasswordChangedNotice(toEmail, _ string) error {
	m.changedTo = append(m.changedTo, toEmail)
	return nil
}

type mockBus struct {
	subjects []string
}

func (m *mockBus) Publish(_ context.Context, subject string, _ interface{}) error {
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockBus) Close() error { return nil }

func (m *mockBus) published(subject string) bool {
	for _, s := range m.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

func testConfig() *config.Config {
	return &config.Config{
		Env:       "development",
		ClientURL: "http://localhost:5173",
		Auth: config.AuthConfig{
			AccessSecret:      "test-access-secret",
			RefreshSecret:     "test-refresh-secret",
			AccessTokenTTL:    15 * time.Minute,
			RefreshTokenTTL:   30 * 24 * time.Hour,
			VerificationTTL:   15 * time.Minute,
			ResetTTL:          time.Hour,
			MaxVerifyAttempts: 5,
		},
	}
}
