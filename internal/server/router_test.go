package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	menucontroller "comanda/internal/menu/controller"
	ordercontroller "comanda/internal/order/controller"
	usercontroller "comanda/internal/user/controller"
)

type mockResolver struct {
	sessions map[string]domain.Session
}

func (m *mockResolver) Get(ctx context.Context, token string) (domain.Session, error) {
	sess, ok := m.sessions[token]
	if !ok {
		return domain.Session{}, apperrors.NewUnauthorizedError("session expired or unknown")
	}
	return sess, nil
}

func newTestRouter() http.Handler {
	resolver := &mockResolver{sessions: map[string]domain.Session{
		"admin-token":  {Token: "admin-token", Role: domain.RoleAdmin, Username: "root"},
		"waiter-token": {Token: "waiter-token", Role: domain.RoleWaiter, Username: "alice"},
	}}

	// Guards reject these requests before any use case is reached.
	ctrls := Controllers{
		Foods:  menucontroller.NewFoodController(nil, zap.NewNop()),
		Orders: ordercontroller.NewSubmitOrderController(nil, 100, zap.NewNop()),
		Users:  usercontroller.NewUserController(nil, nil, zap.NewNop()),
	}
	return NewRouter(ctrls, resolver, zap.NewNop())
}

func TestRouter_Healthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRouter_Guards(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"foods without token", http.MethodGet, "/api/foods", "", http.StatusUnauthorized},
		{"orders with unknown token", http.MethodPost, "/api/orders", "stale", http.StatusUnauthorized},
		{"waiter creating food", http.MethodPost, "/api/foods", "waiter-token", http.StatusForbidden},
		{"waiter deleting food", http.MethodDelete, "/api/foods/1", "waiter-token", http.StatusForbidden},
		{"waiter listing users", http.MethodGet, "/api/users", "waiter-token", http.StatusForbidden},
		{"profile without token", http.MethodGet, "/api/profile", "", http.StatusUnauthorized},
		{"logout without token", http.MethodPost, "/api/users/logout", "", http.StatusUnauthorized},
		{"register with unknown token", http.MethodPost, "/api/users/register", "stale", http.StatusUnauthorized},
	}

	router := newTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
