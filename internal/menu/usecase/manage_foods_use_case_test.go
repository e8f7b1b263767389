package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
)

type mockFoodRepository struct {
	FindAllFunc  func(ctx context.Context) ([]domain.Food, error)
	FindByIDFunc func(ctx context.Context, id int64) (*domain.Food, error)
	InsertFunc   func(ctx context.Context, food domain.Food) (int64, error)
	UpdateFunc   func(ctx context.Context, food domain.Food) error
	DeleteFunc   func(ctx context.Context, id int64) error
}

func (m *mockFoodRepository) FindAll(ctx context.Context) ([]domain.Food, error) {
	return m.FindAllFunc(ctx)
}

func (m *mockFoodRepository) FindByID(ctx context.Context, id int64) (*domain.Food, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *mockFoodRepository) Insert(ctx context.Context, food domain.Food) (int64, error) {
	return m.InsertFunc(ctx, food)
}

func (m *mockFoodRepository) Update(ctx context.Context, food domain.Food) error {
	return m.UpdateFunc(ctx, food)
}

func (m *mockFoodRepository) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

func TestListFoods(t *testing.T) {
	repo := &mockFoodRepository{
		FindAllFunc: func(ctx context.Context) ([]domain.Food, error) {
			return []domain.Food{
				{ID: 1, Name: "Pizza", Price: 10.99, Description: "Margherita"},
				{ID: 2, Name: "Salad", Price: 8.99},
			}, nil
		},
	}

	foods, err := NewManageFoodsUseCase(repo, zap.NewNop()).ListFoods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []dto.FoodDTO{
		{ID: 1, Name: "Pizza", Price: 10.99, Description: "Margherita"},
		{ID: 2, Name: "Salad", Price: 8.99},
	}, foods)
}

func TestListFoods_EmptyMenuIsNotNil(t *testing.T) {
	repo := &mockFoodRepository{
		FindAllFunc: func(ctx context.Context) ([]domain.Food, error) { return nil, nil },
	}

	foods, err := NewManageFoodsUseCase(repo, zap.NewNop()).ListFoods(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, foods)
	assert.Empty(t, foods)
}

func TestCreateFood_TrimsAndInserts(t *testing.T) {
	var inserted domain.Food
	repo := &mockFoodRepository{
		InsertFunc: func(ctx context.Context, food domain.Food) (int64, error) {
			inserted = food
			return 42, nil
		},
	}

	out, err := NewManageFoodsUseCase(repo, zap.NewNop()).CreateFood(context.Background(), dto.FoodRequest{
		Name:        "  Pizza ",
		Price:       10.99,
		Description: " Margherita ",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), out.ID)
	assert.Equal(t, "Pizza", inserted.Name)
	assert.Equal(t, "Margherita", inserted.Description)
}

func TestCreateFood_Validation(t *testing.T) {
	repo := &mockFoodRepository{}
	uc := NewManageFoodsUseCase(repo, zap.NewNop())

	_, err := uc.CreateFood(context.Background(), dto.FoodRequest{Name: " ", Price: -1})
	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	assert.Len(t, ve.Details, 2)
}

func TestUpdateFood_NotFound(t *testing.T) {
	repo := &mockFoodRepository{
		UpdateFunc: func(ctx context.Context, food domain.Food) error {
			return apperrors.NewNotFoundError("food with id 9 not found")
		},
	}

	_, err := NewManageFoodsUseCase(repo, zap.NewNop()).UpdateFood(context.Background(), 9, dto.FoodRequest{Name: "Pizza", Price: 1})
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestUpdateFood_PassesID(t *testing.T) {
	var updated domain.Food
	repo := &mockFoodRepository{
		UpdateFunc: func(ctx context.Context, food domain.Food) error {
			updated = food
			return nil
		},
	}

	out, err := NewManageFoodsUseCase(repo, zap.NewNop()).UpdateFood(context.Background(), 5, dto.FoodRequest{Name: "Soup", Price: 4.5})
	require.NoError(t, err)
	assert.Equal(t, int64(5), updated.ID)
	assert.Equal(t, int64(5), out.ID)
}

func TestDeleteFood(t *testing.T) {
	repo := &mockFoodRepository{
		DeleteFunc: func(ctx context.Context, id int64) error {
			if id == 1 {
				return nil
			}
			return errors.New("boom")
		},
	}
	uc := NewManageFoodsUseCase(repo, zap.NewNop())

	assert.NoError(t, uc.DeleteFood(context.Background(), 1))
	assert.Error(t, uc.DeleteFood(context.Background(), 2))
}
