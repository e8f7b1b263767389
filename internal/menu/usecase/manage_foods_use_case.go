package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
)

const maxFoodNameLength = 255

type FoodRepository interface {
	FindAll(ctx context.Context) ([]domain.Food, error)
	FindByID(ctx context.Context, id int64) (*domain.Food, error)
	Insert(ctx context.Context, food domain.Food) (int64, error)
	Update(ctx context.Context, food domain.Food) error
	Delete(ctx context.Context, id int64) error
}

type ManageFoodsUseCase struct {
	repo   FoodRepository
	logger *zap.Logger
}

func NewManageFoodsUseCase(repo FoodRepository, logger *zap.Logger) *ManageFoodsUseCase {
	return &ManageFoodsUseCase{repo: repo, logger: logger}
}

func (uc *ManageFoodsUseCase) ListFoods(ctx context.Context) ([]dto.FoodDTO, error) {
	foods, err := uc.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.FoodDTO, 0, len(foods))
	for _, f := range foods {
		out = append(out, toFoodDTO(f))
	}
	return out, nil
}

func (uc *ManageFoodsUseCase) CreateFood(ctx context.Context, req dto.FoodRequest) (*dto.FoodDTO, error) {
	food, err := validateFoodRequest(req)
	if err != nil {
		return nil, err
	}

	id, err := uc.repo.Insert(ctx, food)
	if err != nil {
		return nil, err
	}
	food.ID = id

	uc.logger.Info("food created", zap.Int64("foodId", id), zap.String("name", food.Name))
	out := toFoodDTO(food)
	return &out, nil
}

func (uc *ManageFoodsUseCase) UpdateFood(ctx context.Context, id int64, req dto.FoodRequest) (*dto.FoodDTO, error) {
	food, err := validateFoodRequest(req)
	if err != nil {
		return nil, err
	}
	food.ID = id

	if err := uc.repo.Update(ctx, food); err != nil {
		return nil, err
	}

	uc.logger.Info("food updated", zap.Int64("foodId", id))
	out := toFoodDTO(food)
	return &out, nil
}

func (uc *ManageFoodsUseCase) DeleteFood(ctx context.Context, id int64) error {
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	uc.logger.Info("food deleted", zap.Int64("foodId", id))
	return nil
}

func validateFoodRequest(req dto.FoodRequest) (domain.Food, error) {
	var details []apperrors.ValidationDetail

	name := strings.TrimSpace(req.Name)
	if name == "" {
		details = append(details, apperrors.ValidationDetail{
			Field:   "name",
			Message: "name is required",
		})
	}
	if len(name) > maxFoodNameLength {
		details = append(details, apperrors.ValidationDetail{
			Field:   "name",
			Message: "name must be at most 255 characters",
		})
	}
	if req.Price < 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "price",
			Message: "price must be non-negative",
		})
	}

	if len(details) > 0 {
		return domain.Food{}, apperrors.NewValidationError("validation failed", details...)
	}

	return domain.Food{
		Name:        name,
		Price:       req.Price,
		Description: strings.TrimSpace(req.Description),
	}, nil
}

func toFoodDTO(f domain.Food) dto.FoodDTO {
	return dto.FoodDTO{
		ID:          f.ID,
		Name:        f.Name,
		Price:       f.Price,
		Description: f.Description,
	}
}
