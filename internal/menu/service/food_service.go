package service

import (
	"context"

	"comanda/internal/domain"
)

type FoodRepository interface {
	FindByIDs(ctx context.Context, ids []int64) ([]domain.Food, error)
}

type FoodService struct {
	repo FoodRepository
}

func NewFoodService(repo FoodRepository) *FoodService {
	return &FoodService{repo: repo}
}

// FoodsByIDs resolves ids against the menu. Foods come back keyed by id and
// the ids with no menu entry are listed in request order.
func (s *FoodService) FoodsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Food, []int64, error) {
	found, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[int64]domain.Food, len(found))
	for _, f := range found {
		byID[f.ID] = f
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}

	return byID, missing, nil
}
