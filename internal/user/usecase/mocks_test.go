package usecase

import (
	"context"

	"comanda/internal/domain"
)

type mockUserRepository struct {
	FindAllFunc        func(ctx context.Context) ([]domain.User, error)
	FindByIDFunc       func(ctx context.Context, id int64) (*domain.User, error)
	FindByUsernameFunc func(ctx context.Context, username string) (*domain.User, error)
	InsertFunc         func(ctx context.Context, user domain.User) (int64, error)
	UpdateFunc         func(ctx context.Context, user domain.User) error
	DeleteFunc         func(ctx context.Context, id int64) error
}

func (m *mockUserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	return m.FindAllFunc(ctx)
}

func (m *mockUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return m.FindByUsernameFunc(ctx, username)
}

func (m *mockUserRepository) Insert(ctx context.Context, user domain.User) (int64, error) {
	return m.InsertFunc(ctx, user)
}

func (m *mockUserRepository) Update(ctx context.Context, user domain.User) error {
	return m.UpdateFunc(ctx, user)
}

func (m *mockUserRepository) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

// plainHasher stores passwords as "hashed:<password>".
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (plainHasher) Matches(hash, password string) (bool, error) {
	return hash == "hashed:"+password, nil
}

type mockSessionStore struct {
	CreateFunc     func(ctx context.Context, user domain.User) (domain.Session, error)
	DeleteFunc     func(ctx context.Context, token string) error
	DeleteUserFunc func(ctx context.Context, username string) error
}

func (m *mockSessionStore) Create(ctx context.Context, user domain.User) (domain.Session, error) {
	return m.CreateFunc(ctx, user)
}

func (m *mockSessionStore) Delete(ctx context.Context, token string) error {
	return m.DeleteFunc(ctx, token)
}

func (m *mockSessionStore) DeleteUser(ctx context.Context, username string) error {
	return m.DeleteUserFunc(ctx, username)
}
