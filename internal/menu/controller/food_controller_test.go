package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
)

type mockManageFoodsUseCase struct {
	ListFoodsFunc  func(ctx context.Context) ([]dto.FoodDTO, error)
	CreateFoodFunc func(ctx context.Context, req dto.FoodRequest) (*dto.FoodDTO, error)
	UpdateFoodFunc func(ctx context.Context, id int64, req dto.FoodRequest) (*dto.FoodDTO, error)
	DeleteFoodFunc func(ctx context.Context, id int64) error
}

func (m *mockManageFoodsUseCase) ListFoods(ctx context.Context) ([]dto.FoodDTO, error) {
	return m.ListFoodsFunc(ctx)
}

func (m *mockManageFoodsUseCase) CreateFood(ctx context.Context, req dto.FoodRequest) (*dto.FoodDTO, error) {
	return m.CreateFoodFunc(ctx, req)
}

func (m *mockManageFoodsUseCase) UpdateFood(ctx context.Context, id int64, req dto.FoodRequest) (*dto.FoodDTO, error) {
	return m.UpdateFoodFunc(ctx, id, req)
}

func (m *mockManageFoodsUseCase) DeleteFood(ctx context.Context, id int64) error {
	return m.DeleteFoodFunc(ctx, id)
}

func newRouter(uc ManageFoodsUseCase) http.Handler {
	ctrl := NewFoodController(uc, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/api/foods", ctrl.List)
	r.Post("/api/foods", ctrl.Create)
	r.Put("/api/foods/{id}", ctrl.Update)
	r.Delete("/api/foods/{id}", ctrl.Delete)
	return r
}

func TestFoodController_List(t *testing.T) {
	uc := &mockManageFoodsUseCase{
		ListFoodsFunc: func(ctx context.Context) ([]dto.FoodDTO, error) {
			return []dto.FoodDTO{{ID: 1, Name: "Pizza", Price: 10.99}}, nil
		},
	}

	rec := httptest.NewRecorder()
	newRouter(uc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/foods", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var foods []dto.FoodDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &foods))
	assert.Equal(t, "Pizza", foods[0].Name)
}

func TestFoodController_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		useCaseErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"name":"Pizza","price":10.99,"description":"Margherita"}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"id":7`,
		},
		{
			name:           "invalid json",
			body:           `{"name":`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: "VALIDATION_ERROR",
		},
		{
			name:           "validation from use case",
			body:           `{"name":"","price":-1}`,
			useCaseErr:     apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{Field: "name", Message: "name is required"}),
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: `"field":"name"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockManageFoodsUseCase{
				CreateFoodFunc: func(ctx context.Context, req dto.FoodRequest) (*dto.FoodDTO, error) {
					if tt.useCaseErr != nil {
						return nil, tt.useCaseErr
					}
					return &dto.FoodDTO{ID: 7, Name: req.Name, Price: req.Price}, nil
				},
			}

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/foods", strings.NewReader(tt.body))
			newRouter(uc).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedSubstr)
		})
	}
}

func TestFoodController_Update(t *testing.T) {
	uc := &mockManageFoodsUseCase{
		UpdateFoodFunc: func(ctx context.Context, id int64, req dto.FoodRequest) (*dto.FoodDTO, error) {
			if id != 3 {
				return nil, apperrors.NewNotFoundError("food not found")
			}
			return &dto.FoodDTO{ID: id, Name: req.Name, Price: req.Price}, nil
		},
	}
	router := newRouter(uc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/foods/3", strings.NewReader(`{"name":"Soup","price":4.5}`)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/foods/4", strings.NewReader(`{"name":"Soup","price":4.5}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/foods/abc", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFoodController_Delete(t *testing.T) {
	var deleted int64
	uc := &mockManageFoodsUseCase{
		DeleteFoodFunc: func(ctx context.Context, id int64) error {
			deleted = id
			return nil
		},
	}

	rec := httptest.NewRecorder()
	newRouter(uc).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/foods/12", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(12), deleted)

	rec = httptest.NewRecorder()
	newRouter(uc).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/foods/0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
