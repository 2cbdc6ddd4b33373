package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/pkg/apperrors"
	"github.com/yigit/vaxportal/internal/pkg/auth"
	"github.com/yigit/vaxportal/internal/testutil/memstore"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (*authServiceImpl, *memstore.Store, *auth.JWTService) {
	t.Helper()
	store := memstore.New()
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "vaxportal-test",
	})
	svc := NewAuthService(store, store.Users(), store.Activity(), nil, jwtService, zerolog.Nop()).(*authServiceImpl)
	svc.hash = func(p string) (string, error) { return auth.HashPasswordWithCost(p, bcrypt.MinCost) }
	return svc, store, jwtService
}

func TestLogin(t *testing.T) {
	svc, store, jwtService := newAuthService(t)
	ctx := context.Background()

	created, err := svc.EnsureUser(ctx, "admin", "admin123", "School Administrator", models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureUser(ctx, "admin", "other", "Someone", models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, created, "existing user is left alone")

	resp, err := svc.Login(ctx, &dto.LoginRequest{Username: " admin ", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.EqualValues(t, 3600, resp.ExpiresIn)
	assert.Equal(t, "admin", resp.User.Role)

	claims, err := jwtService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	_, err = svc.Login(ctx, &dto.LoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidLoginPair)

	_, err = svc.Login(ctx, &dto.LoginRequest{Username: "ghost", Password: "admin123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidLoginPair)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))

	logs := store.ActivityLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionLogin, logs[0].Action)
}

func TestRegister(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	req := &dto.RegisterRequest{Username: "nurse", Password: "s3cret!", Name: "Nurse Joy"}

	_, err := svc.Register(ctx, models.Actor{UserID: 2, Role: models.RoleCoordinator}, req)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	user, err := svc.Register(ctx, admin, req)
	require.NoError(t, err)
	assert.Equal(t, string(models.RoleCoordinator), user.Role)

	_, err = svc.Register(ctx, admin, req)
	assert.ErrorIs(t, err, apperrors.ErrUsernameTaken)

	me, err := svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nurse Joy", me.Name)

	_, err = svc.Me(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
