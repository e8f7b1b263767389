package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"comanda/internal/auth"
	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
	"comanda/internal/httpx"
)

type AuthUseCase interface {
	Register(ctx context.Context, req dto.RegisterRequest, caller *domain.Session) (*dto.UserDTO, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context, sess domain.Session) error
}

type ManageUsersUseCase interface {
	ListUsers(ctx context.Context) ([]dto.UserDTO, error)
	GetUser(ctx context.Context, id int64) (*dto.UserDTO, error)
	UpdateUser(ctx context.Context, id int64, req dto.UpdateUserRequest) (*dto.UserDTO, error)
	DeleteUser(ctx context.Context, id int64, caller domain.Session) error
	GetProfile(ctx context.Context, sess domain.Session) (*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, sess domain.Session, req dto.UpdateProfileRequest) (*dto.UserDTO, error)
}

type UserController struct {
	auth   AuthUseCase
	users  ManageUsersUseCase
	logger *zap.Logger
}

func NewUserController(authUC AuthUseCase, users ManageUsersUseCase, logger *zap.Logger) *UserController {
	return &UserController{
		auth:   authUC,
		users:  users,
		logger: logger,
	}
}

func (c *UserController) Register(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	var req dto.RegisterRequest
	if !httpx.DecodeJSON(w, r, traceID, &req, c.logger) {
		return
	}

	// Anonymous callers may only self-register as waiters
	var caller *domain.Session
	if sess, ok := auth.SessionFrom(r.Context()); ok {
		caller = &sess
	}

	user, err := c.auth.Register(r.Context(), req, caller)
	if err != nil {
		httpx.WriteError(w, traceID, err, c.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, user, c.logger)
}

func (c *UserController) Login(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	var req dto.LoginRequest
	if !httpx.DecodeJSON(w, r, traceID, &req, c.logger) {
		return
	}

	resp, err := c.auth.Login(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, traceID, err, c.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp, c.logger)
}

func (c *UserController) Logout(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	sess, ok := c.session(w, r, traceID)
	if !ok {
		return
	}

	if err := c.auth.Logout(r.Context(), sess); err != nil {
		httpx.WriteError(w, traceID, err, c.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *UserController) List(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	users, err := c.users.ListUsers(r.Context())
	if err != nil {
		httpx.WriteError(w, traceID, err, c.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, users, c.logger)
}

func (c *UserController) Get(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	id, ok := c.parseID(w, r, traceID)
	if !ok {
		return
	}

	user, err := c.users.GetUser(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, traceID, err, c.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, user, c.logger)
}

func (c *UserController) Update(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	id, ok := c.parseID(w, r, traceID)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if !httpx.DecodeJSON(w, r, traceID, &req, c.logger) {
		return
	}

	user, err := c.users.UpdateUser(r.Context(), id, req)
	if err != nil {
		httpx.WriteError(w, traceID, err, c.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, user, c.logger)
}

func (c *UserController) Delete(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	id, ok := c.parseID(w, r, traceID)
	if !ok {
		return
	}
	sess, ok := c.session(w, r, traceID)
	if !ok {
		return
	}

	if err := c.users.DeleteUser(r.Context(), id, sess); err != nil {
		httpx.WriteError(w, traceID, err, c.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *UserController) GetProfile(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	sess, ok := c.session(w, r, traceID)
	if !ok {
		return
	}

	profile, err := c.users.GetProfile(r.Context(), sess)
	if err != nil {
		httpx.WriteError(w, traceID, err, c.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, profile, c.logger)
}

func (c *UserController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	sess, ok := c.session(w, r, traceID)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if !httpx.DecodeJSON(w, r, traceID, &req, c.logger) {
		return
	}

	profile, err := c.users.UpdateProfile(r.Context(), sess, req)
	if err != nil {
		httpx.WriteError(w, traceID, err, c.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, profile, c.logger)
}

func (c *UserController) session(w http.ResponseWriter, r *http.Request, traceID string) (domain.Session, bool) {
	sess, ok := auth.SessionFrom(r.Context())
	if !ok {
		httpx.WriteError(w, traceID, apperrors.NewUnauthorizedError("missing session"), c.logger)
		return domain.Session{}, false
	}
	return sess, true
}

func (c *UserController) parseID(w http.ResponseWriter, r *http.Request, traceID string) (int64, bool) {
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
