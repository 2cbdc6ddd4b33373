package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/vaxportal/internal/app/models"
	"github.com/yigit/vaxportal/internal/app/models/dto"
	"github.com/yigit/vaxportal/internal/app/repositories"
	"github.com/yigit/vaxportal/internal/pkg/apperrors"
	"github.com/yigit/vaxportal/internal/pkg/auth"
)

// AuthService handles authentication and portal user management
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Register(ctx context.Context, actor models.Actor, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Me(ctx context.Context, userID int64) (*dto.UserResponse, error)
	// EnsureUser creates the user when the username is free and reports whether it did
	EnsureUser(ctx context.Context, username, password, name string, role models.Role) (bool, error)
}

// authServiceImpl implements AuthService
type authServiceImpl struct {
	tx         Transactor
	userRepo   repositories.IUserRepository
	audit      *auditor
	jwtService *auth.JWTService
	hash       func(string) (string, error)
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	tx Transactor,
	userRepo repositories.IUserRepository,
	activityRepo repositories.IActivityRepository,
	publisher ActivityPublisher,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) AuthService {
	return &authServiceImpl{
		tx:         tx,
		userRepo:   userRepo,
		audit:      newAuditor(activityRepo, publisher, logger),
		jwtService: jwtService,
		hash:       auth.HashPassword,
		logger:     logger,
	}
}

// Login verifies credentials and issues an access token. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			s.logger.Info().Str("username", username).Msg("Login attempt for unknown user")
			return nil, apperrors.ErrInvalidLoginPair
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		s.logger.Info().Int64("userID", user.ID).Msg("Login attempt with wrong password")
		return nil, apperrors.ErrInvalidLoginPair
	}

	token, expiresAt, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	actor := models.Actor{UserID: user.ID, Username: user.Username, Role: user.Role}
	entry, err := s.audit.record(ctx, actor, models.ActionLogin, fmt.Sprintf("User %s logged in", user.Username))
	if err != nil {
		return nil, err
	}
	s.audit.announce(ctx, entry, user.ID)

	return &dto.LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: s.jwtService.ExpiresIn(),
		ExpiresAt: expiresAt,
		User:      dto.FromUser(user),
	}, nil
}

// Register creates a portal user; only admins may do so
func (s *authServiceImpl) Register(ctx context.Context, actor models.Actor, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	if actor.Role != models.RoleAdmin {
		return nil, apperrors.NewForbiddenError("Only administrators can create users")
	}

	role := models.Role(strings.TrimSpace(req.Role))
	if role == "" {
		role = models.RoleCoordinator
	}
	if !role.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Unknown role %q", req.Role))
	}

	hashed, err := s.hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Username: strings.TrimSpace(req.Username),
		Password: hashed,
		Name:     strings.TrimSpace(req.Name),
		Role:     role,
	}

	var entry *models.ActivityLog
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}

		var err error
		entry, err = s.audit.record(ctx, actor, models.ActionCreateUser,
			fmt.Sprintf("Created user: %s (%s)", user.Username, user.Role))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.announce(ctx, entry, user.ID)

	resp := dto.FromUser(user)
	return &resp, nil
}

// Me returns the authenticated user
func (s *authServiceImpl) Me(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := dto.FromUser(user)
	return &resp, nil
}

// EnsureUser creates the user when the username is free and reports whether it did
func (s *authServiceImpl) EnsureUser(ctx context.Context, username, password, name string, role models.Role) (bool, error) {
	_, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return false, err
	}

	hashed, err := s.hash(password)
	if err != nil {
		return false, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{Username: username, Password: hashed, Name: name, Role: role}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrUsernameTaken) {
			return false, nil
		}
		return false, err
	}

	s.logger.Info().Str("username", username).Str("role", string(role)).Msg("Created default user")
	return true, nil
}
