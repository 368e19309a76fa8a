package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wisma-sentral/wisma-admin-api/internal/models"
	appErrors "github.com/wisma-sentral/wisma-admin-api/pkg/errors"
)

type mockUserRepo struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
	audits  []*models.AuditLog
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byEmail: map[string]*models.User{}, byID: map[string]*models.User{}}
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.byID {
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	stored := *user
	m.byEmail[user.Email] = &stored
	m.byID[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	if u, ok := m.byID[id]; ok {
		u.Status = status
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func TestRegisterCreatesPendingMember(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "Budi@Example.com",
		Password: "secret-pass",
		FullName: "Budi Santoso",
	})
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusPending, user.Status)
	assert.Equal(t, models.RoleMember, user.Role)
	assert.Equal(t, "budi@example.com", user.Email)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret-pass")))
	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionRegister, repo.audits[0].Action)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "budi@example.com", Password: "secret-pass", FullName: "Budi",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), models.RegisterRequest{
		Email: "budi@example.com", Password: "other-pass", FullName: "Impostor",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestApproveActivatesPendingAccount(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "budi@example.com", Password: "secret-pass", FullName: "Budi",
	})
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), user.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, approved.Status)

	// A decided account cannot be decided again.
	_, err = svc.Reject(context.Background(), user.ID, "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestRejectMarksAccountRejected(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "siti@example.com", Password: "secret-pass", FullName: "Siti",
	})
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), user.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusRejected, rejected.Status)
}

func TestApproveUnknownUserReturnsNotFound(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, nil)

	_, err := svc.Approve(context.Background(), "user-404", "admin-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
