package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"desorientado_backend/internal/config"
	"desorientado_backend/internal/model"
	"desorientado_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memUsers struct {
	mu     sync.Mutex
	byID   map[uint]*model.User
	nextID uint
	logins int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uint]*model.User{}}
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) UpdateLastLogin(_ context.Context, _ uint, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins++
	return nil
}

func newAuth() (*AuthService, *memUsers) {
	users := newMemUsers()
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret-test-secret-test-secret", ExpireTime: time.Hour}}
	return NewAuthService(users, cfg), users
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, users := newAuth()
	ctx := context.Background()

	u, err := svc.Register(ctx, " Ana ", " Ana@Example.com", "senha-forte")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, model.Student, u.Role)
	assert.NotEqual(t, "senha-forte", u.Password)

	_, err = svc.Register(ctx, "Outra", "ana@example.com", "x")
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	token, logged, err := svc.Login(ctx, "ANA@example.com", "senha-forte")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
	assert.Equal(t, 1, users.logins)

	claims, err := util.ParseJWT(token, svc.Cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, model.Student, claims.Role)
}

func TestAuthService_LoginFailures(t *testing.T) {
	svc, users := newAuth()
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "ninguem@example.com", "x")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	u, err := svc.Register(ctx, "Ana", "ana@example.com", "senha-forte")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "ana@example.com", "errada")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	users.byID[u.ID].Disabled = true
	_, _, err = svc.Login(ctx, "ana@example.com", "senha-forte")
	assert.ErrorIs(t, err, util.ErrUserDisabled)
	assert.Zero(t, users.logins)
}

func TestAuthService_GetUser(t *testing.T) {
	svc, _ := newAuth()

	_, err := svc.GetUser(context.Background(), 42)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}
