package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
)

type ManageUsersUseCase struct {
	users    UserRepository
	hasher   PasswordHasher
	sessions SessionStore
	logger   *zap.Logger
}

func NewManageUsersUseCase(users UserRepository, hasher PasswordHasher, sessions SessionStore, logger *zap.Logger) *ManageUsersUseCase {
	return &ManageUsersUseCase{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		logger:   logger,
	}
}

func (uc *ManageUsersUseCase) ListUsers(ctx context.Context) ([]dto.UserDTO, error) {
	users, err := uc.users.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u))
	}
	return out, nil
}

func (uc *ManageUsersUseCase) GetUser(ctx context.Context, id int64) (*dto.UserDTO, error) {
	user, err := uc.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := toUserDTO(*user)
	return &out, nil
}

// UpdateUser applies an admin edit. Changing the role or the password ends
// every session of that user so the new capability takes effect.
func (uc *ManageUsersUseCase) UpdateUser(ctx context.Context, id int64, req dto.UpdateUserRequest) (*dto.UserDTO, error) {
	var details []apperrors.ValidationDetail
	details = validateEmail(strings.TrimSpace(req.Email), details)
	details = validatePassword(req.Password, false, details)

	role := domain.Role("")
	if strings.TrimSpace(req.Role) != "" {
		role, details = parseRole(req.Role, details)
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}

	user, err := uc.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	revoke := false
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		user.Email = email
	}
	if role != "" && role != user.Role {
		user.Role = role
		revoke = true
	}
	if req.Password != "" {
		hash, err := uc.hasher.Hash(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		revoke = true
	}

	if err := uc.users.Update(ctx, *user); err != nil {
		return nil, err
	}

	if revoke {
		if err := uc.sessions.DeleteUser(ctx, user.Username); err != nil {
			uc.logger.Warn("revoking sessions failed", zap.String("username", user.Username), zap.Error(err))
		}
	}

	uc.logger.Info("user updated", zap.Int64("userId", id), zap.Bool("sessionsRevoked", revoke))
	out := toUserDTO(*user)
	return &out, nil
}

func (uc *ManageUsersUseCase) DeleteUser(ctx context.Context, id int64, caller domain.Session) error {
	user, err := uc.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Username == caller.Username {
		return apperrors.NewConflictError("an admin cannot delete their own account")
	}

	if err := uc.users.Delete(ctx, id); err != nil {
		return err
	}
	if err := uc.sessions.DeleteUser(ctx, user.Username); err != nil {
		uc.logger.Warn("revoking sessions failed", zap.String("username", user.Username), zap.Error(err))
	}

	uc.logger.Info("user deleted", zap.Int64("userId", id), zap.String("username", user.Username))
	return nil
}

func (uc *ManageUsersUseCase) GetProfile(ctx context.Context, sess domain.Session) (*dto.UserDTO, error) {
	user, err := uc.users.FindByUsername(ctx, sess.Username)
	if err != nil {
		return nil, err
	}
	out := toUserDTO(*user)
	return &out, nil
}

// UpdateProfile lets a user edit their own name, email and password. The
// current session stays valid.
func (uc *ManageUsersUseCase) UpdateProfile(ctx context.Context, sess domain.Session, req dto.UpdateProfileRequest) (*dto.UserDTO, error) {
	var details []apperrors.ValidationDetail
	details = validateEmail(strings.TrimSpace(req.Email), details)
	details = validatePassword(req.Password, false, details)
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}

	user, err := uc.users.FindByUsername(ctx, sess.Username)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		user.Email = email
	}
	if req.Password != "" {
		hash, err := uc.hasher.Hash(req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := uc.users.Update(ctx, *user); err != nil {
		return nil, err
	}

	uc.logger.Info("profile updated", zap.String("username", user.Username))
	out := toUserDTO(*user)
	return &out, nil
}
