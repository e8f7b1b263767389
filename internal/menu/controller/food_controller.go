package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
	"comanda/internal/httpx"
)

type ManageFoodsUseCase interface {
	ListFoods(ctx context.Context) ([]dto.FoodDTO, error)
	CreateFood(ctx context.Context, req dto.FoodRequest) (*dto.FoodDTO, error)
	UpdateFood(ctx context.Context, id int64, req dto.FoodRequest) (*dto.FoodDTO, error)
	DeleteFood(ctx context.Context, id int64) error
}

type FoodController struct {
	useCase ManageFoodsUseCase
	logger  *zap.Logger
}

func NewFoodController(useCase ManageFoodsUseCase, logger *zap.Logger) *FoodController {
	return &FoodController{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *FoodController) List(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	foods, err := c.useCase.ListFoods(r.Context())
	if err != nil {
		httpx.WriteError(w, traceID, err, c.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, foods, c.logger)
}

func (c *FoodController) Create(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	var req dto.FoodRequest
	if !httpx.DecodeJSON(w, r, traceID, &req, c.logger) {
		return
	}

	food, err := c.useCase.CreateFood(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, traceID, err, c.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, food, c.logger)
}

func (c *FoodController) Update(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	// Parse id from path
	id, ok := c.parseID(w, r, traceID)
	if !ok {
		return
	}

	// Decode request body
	var req dto.FoodRequest
	if !httpx.DecodeJSON(w, r, traceID, &req, c.logger) {
		return
	}

	// Call use case
	food, err := c.useCase.UpdateFood(r.Context(), id, req)
	if err != nil {
		httpx.WriteError(w, traceID, err, c.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, food, c.logger)
}

func (c *FoodController) Delete(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	id, ok := c.parseID(w, r, traceID)
	if !ok {
		return
	}

	if err := c.useCase.DeleteFood(r.Context(), id); err != nil {
		httpx.WriteError(w, traceID, err, c.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *FoodController) parseID(w http.ResponseWriter, r *http.Request, traceID string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteValidationError(w, traceID, "invalid id", c.logger, apperrors.ValidationDetail{
			Field:   "id",
			Message: "id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}
