package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
)

const idempotencyHeader = "Idempotency-Key"

// Client talks to the backend REST API on behalf of one station. After a
// successful Login every request carries the session's bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu             sync.Mutex
	token          string
	onUnauthorized func()
}

func New(baseURL string, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("apiclient: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("apiclient: invalid base URL %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// OnUnauthorized registers fn to run whenever the backend rejects the
// bearer token.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) Login(ctx context.Context, username, password string) (domain.Session, error) {
	var resp dto.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/users/login", nil, dto.LoginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return domain.Session{}, fmt.Errorf("login: %w", err)
	}

	sess := domain.Session{Token: resp.Token, Role: domain.Role(resp.Role), Username: resp.Username}
	if !sess.Valid() {
		return domain.Session{}, apperrors.NewUnauthorizedError(fmt.Sprintf("backend returned an unusable session for role %q", resp.Role))
	}

	c.mu.Lock()
	c.token = sess.Token
	c.mu.Unlock()

	c.logger.Info("logged in", zap.String("username", sess.Username), zap.String("role", string(sess.Role)))
	return sess, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if c.Token() == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/api/users/logout", nil, nil, nil)
	c.clearToken()
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (c *Client) ListFoods(ctx context.Context) ([]domain.Food, error) {
	var foods []dto.FoodDTO
	if err := c.do(ctx, http.MethodGet, "/api/foods", nil, nil, &foods); err != nil {
		return nil, fmt.Errorf("listing foods: %w", err)
	}

	out := make([]domain.Food, len(foods))
	for i, f := range foods {
		out[i] = domain.Food{ID: f.ID, Name: f.Name, Price: f.Price, Description: f.Description}
	}
	return out, nil
}

// SubmitOrder posts the order and returns it as the backend recorded it,
// including the server-assigned order number.
func (c *Client) SubmitOrder(ctx context.Context, req dto.SubmitOrderRequest, idempotencyKey string) (domain.Order, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[idempotencyHeader] = idempotencyKey
	}

	var order domain.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", headers, req, &order); err != nil {
		return domain.Order{}, fmt.Errorf("submitting order: %w", err)
	}
	return order, nil
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := decodeError(resp.StatusCode, data)
		if _, ok := apperrors.IsUnauthorizedError(apiErr); ok && path != "/api/users/login" {
			c.expire()
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// expire drops the token and notifies the station that it must log in again.
func (c *Client) expire() {
	c.mu.Lock()
	c.token = ""
	fn := c.onUnauthorized
	c.mu.Unlock()

	c.logger.Warn("backend rejected session")
	if fn != nil {
		fn()
	}
}

func (c *Client) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// decodeError turns a backend error body back into the typed error the
// backend started from.
func decodeError(status int, body []byte) error {
	var er dto.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Message == "" {
		er.Message = strings.TrimSpace(string(body))
		if er.Message == "" {
			er.Message = http.StatusText(status)
		}
	}

	switch status {
	case http.StatusBadRequest:
		return apperrors.NewValidationError(er.Message, er.Details...)
	case http.StatusUnauthorized:
		return apperrors.NewUnauthorizedError(er.Message)
	case http.StatusForbidden:
		return apperrors.NewForbiddenError(er.Message)
	case http.StatusNotFound:
		return apperrors.NewNotFoundError(er.Message)
	case http.StatusConflict:
		return apperrors.NewConflictError(er.Message)
	default:
		return apperrors.NewInternalError(fmt.Sprintf("backend answered %d", status), errors.New(er.Message))
	}
}
