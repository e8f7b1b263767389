package usecase

import (
	"context"
	"net/mail"
	"strings"

	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 100
	minPasswordLength = 6
)

type UserRepository interface {
	FindAll(ctx context.Context) ([]domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Insert(ctx context.Context, user domain.User) (int64, error)
	Update(ctx context.Context, user domain.User) error
	Delete(ctx context.Context, id int64) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Matches(hash, password string) (bool, error)
}

type SessionStore interface {
	Create(ctx context.Context, user domain.User) (domain.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteUser(ctx context.Context, username string) error
}

func toUserDTO(u domain.User) dto.UserDTO {
	return dto.UserDTO{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
		Role:     string(u.Role),
	}
}

func validateEmail(email string, details []apperrors.ValidationDetail) []apperrors.ValidationDetail {
	if email == "" {
		return details
	}
	if _, err := mail.ParseAddress(email); err != nil {
		details = append(details, apperrors.ValidationDetail{
			Field:   "email",
			Message: "email must be a valid address",
		})
	}
	return details
}

func validatePassword(password string, required bool, details []apperrors.ValidationDetail) []apperrors.ValidationDetail {
	if password == "" && !required {
		return details
	}
	if len(password) < minPasswordLength {
		details = append(details, apperrors.ValidationDetail{
			Field:   "password",
			Message: "password must be at least 6 characters",
		})
	}
	return details
}

func parseRole(raw string, details []apperrors.ValidationDetail) (domain.Role, []apperrors.ValidationDetail) {
	role := domain.Role(strings.ToLower(strings.TrimSpace(raw)))
	if role == "" {
		return domain.RoleWaiter, details
	}
	if !role.Valid() {
		details = append(details, apperrors.ValidationDetail{
			Field:   "role",
			Message: "role must be admin or waiter",
		})
	}
	return role, details
}
