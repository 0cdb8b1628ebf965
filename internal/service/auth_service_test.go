package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/opscheck/checklist-api/internal/models"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
)

type mockAuthRepo struct {
	users   map[string]*models.User
	byEmail map[string]string
	sources map[string]models.RoleSource
	audits  []*models.AuditLog
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
		sources: make(map[string]models.RoleSource),
	}
}

func (m *mockAuthRepo) add(u *models.User, src models.RoleSource) {
	m.users[u.ID] = u
	m.byEmail[u.Email] = u.ID
	m.sources[u.ID] = src
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if id, ok := m.byEmail[email]; ok {
		return m.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RoleSourceByUserID(ctx context.Context, userID string) (models.RoleSource, error) {
	return m.sources[userID], nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthRepo) {
	t.Helper()
	repo := newMockAuthRepo()
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "checklist-api-test",
	})
	return svc, repo
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthLoginSuccess(t *testing.T) {
	svc, repo := newAuthFixture(t)
	name := "Morgan Lee"
	repo.add(&models.User{
		ID: "u1", Email: "morgan@example.com", FullName: &name,
		Active: true, PasswordHash: hashPassword(t, "s3cret-pass"),
	}, models.InlineRole("manager"))

	result, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "morgan@example.com", Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, int64(3600), result.ExpiresIn)
	assert.Equal(t, models.RoleManager, result.User.Role)
	assert.Equal(t, "Morgan Lee", result.User.FullName)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleManager, claims.Role)

	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionLogin, repo.audits[0].Action)
}

func TestAuthLoginRoleFromLinkedRecord(t *testing.T) {
	svc, repo := newAuthFixture(t)
	slug := "admin"
	repo.add(&models.User{
		ID: "u1", Email: "boss@example.com", Active: true,
		PasswordHash: hashPassword(t, "s3cret-pass"),
	}, models.LinkedRoleSource(models.LinkedRole{ID: "role-1", Slug: &slug}))

	result, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "boss@example.com", Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, result.User.Role)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.add(&models.User{
		ID: "u1", Email: "morgan@example.com", Active: true,
		PasswordHash: hashPassword(t, "s3cret-pass"),
	}, models.InlineRole("manager"))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "morgan@example.com", Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.audits)
}

func TestAuthLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "ghost@example.com", Password: "whatever",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.add(&models.User{
		ID: "u1", Email: "gone@example.com", Active: false,
		PasswordHash: hashPassword(t, "s3cret-pass"),
	}, models.InlineRole("employee"))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "gone@example.com", Password: "s3cret-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRejectsTampered(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.add(&models.User{
		ID: "u1", Email: "morgan@example.com", Active: true,
		PasswordHash: hashPassword(t, "s3cret-pass"),
	}, models.InlineRole("manager"))

	result, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "morgan@example.com", Password: "s3cret-pass",
	})
	require.NoError(t, err)

	other := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: time.Hour,
	})
	_, err = other.ValidateToken(result.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthResolveRoleDefaultsToEmployee(t *testing.T) {
	svc, repo := newAuthFixture(t)
	repo.sources["u1"] = models.RoleSource{}

	role, err := svc.ResolveRoleByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleEmployee, role)
}
