package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
)

type AuthUseCase struct {
	users    UserRepository
	hasher   PasswordHasher
	sessions SessionStore
	logger   *zap.Logger
}

func NewAuthUseCase(users UserRepository, hasher PasswordHasher, sessions SessionStore, logger *zap.Logger) *AuthUseCase {
	return &AuthUseCase{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		logger:   logger,
	}
}

// Register creates an account. Self-registration always yields a waiter;
// only an admin caller may create another admin.
func (uc *AuthUseCase) Register(ctx context.Context, req dto.RegisterRequest, caller *domain.Session) (*dto.UserDTO, error) {
	// Validate request
	var details []apperrors.ValidationDetail

	username := strings.TrimSpace(req.Username)
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		details = append(details, apperrors.ValidationDetail{
			Field:   "username",
			Message: "username must be between 3 and 100 characters",
		})
	}
	details = validatePassword(req.Password, true, details)
	email := strings.TrimSpace(req.Email)
	details = validateEmail(email, details)

	var role domain.Role
	role, details = parseRole(req.Role, details)

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}

	// Check caller capability
	if role == domain.RoleAdmin && (caller == nil || caller.Capability() != domain.CapabilityAdminView) {
		return nil, apperrors.NewForbiddenError("only an admin may register an admin")
	}

	hash, err := uc.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = username
	}

	user := domain.User{
		Username:     username,
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	}

	// Persist user
	id, err := uc.users.Insert(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id

	uc.logger.Info("user registered", zap.Int64("userId", id), zap.String("username", username), zap.String("role", string(role)))
	out := toUserDTO(user)
	return &out, nil
}

func (uc *AuthUseCase) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, apperrors.NewValidationError("username and password are required",
			apperrors.ValidationDetail{Field: "username", Message: "username is required"},
			apperrors.ValidationDetail{Field: "password", Message: "password is required"},
		)
	}

	user, err := uc.users.FindByUsername(ctx, username)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			uc.logger.Info("login rejected", zap.String("username", username))
			return nil, apperrors.NewUnauthorizedError("invalid username or password")
		}
		return nil, err
	}

	ok, err := uc.hasher.Matches(user.PasswordHash, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		uc.logger.Info("login rejected", zap.String("username", username))
		return nil, apperrors.NewUnauthorizedError("invalid username or password")
	}

	sess, err := uc.sessions.Create(ctx, *user)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("user logged in", zap.String("username", sess.Username), zap.String("role", string(sess.Role)))
	return &dto.LoginResponse{
		Token:    sess.Token,
		Role:     string(sess.Role),
		Username: sess.Username,
	}, nil
}

func (uc *AuthUseCase) Logout(ctx context.Context, sess domain.Session) error {
	if err := uc.sessions.Delete(ctx, sess.Token); err != nil {
		return err
	}
	uc.logger.Info("user logged out", zap.String("username", sess.Username))
	return nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist
// yet. An empty username disables bootstrapping.
func (uc *AuthUseCase) EnsureAdmin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}

	_, err := uc.users.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if _, ok := apperrors.IsNotFoundError(err); !ok {
		return err
	}

	// No admin yet and no password configured: refuse to start.
	if password == "" {
		return apperrors.NewValidationError("bootstrap admin password not configured, set SESSION_BOOTSTRAP_PASSWORD", apperrors.ValidationDetail{
			Field:   "session.bootstrapPassword",
			Message: "set SESSION_BOOTSTRAP_PASSWORD to create the first admin",
		})
	}
	if details := validatePassword(password, true, nil); len(details) > 0 {
		return apperrors.NewValidationError("bootstrap admin password rejected", details...)
	}

	hash, err := uc.hasher.Hash(password)
	if err != nil {
		return err
	}

	id, err := uc.users.Insert(ctx, domain.User{
		Username:     username,
		Name:         username,
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
	})
	if err != nil {
		return err
	}

	uc.logger.Info("bootstrap admin created", zap.Int64("userId", id), zap.String("username", username))
	return nil
}
