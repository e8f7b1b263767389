package station

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"comanda/internal/cart"
	"comanda/internal/clock"
	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/httpx"
	"comanda/internal/ticket"
)

// View is the operator surface mounted for one capability.
type View interface {
	Capability() domain.Capability
	Routes(r chi.Router)
	Close()
}

// Backend is the slice of the REST API the waiter view calls.
type Backend interface {
	cart.Submitter
	ListFoods(ctx context.Context) ([]domain.Food, error)
}

type Deps struct {
	Backend Backend
	Channel Channel
	Printer ticket.Printer
	Clock   clock.Clock
	Group   string
	Logger  *zap.Logger
}

// NewView resolves the session's capability once and builds the matching
// view. Sessions without a capability get no view at all.
func NewView(sess domain.Session, deps Deps) (View, error) {
	switch sess.Capability() {
	case domain.CapabilityAdminView:
		return NewAdminView(sess, deps.Channel, deps.Printer, deps.Clock, deps.Group, deps.Logger)
	case domain.CapabilityWaiterView:
		return NewWaiterView(sess, deps.Backend, deps.Logger), nil
	default:
		return nil, apperrors.NewForbiddenError(fmt.Sprintf("role %q has no station view", sess.Role))
	}
}

type sessionResponse struct {
	Username   string `json:"username"`
	Role       string `json:"role"`
	Capability string `json:"capability"`
}

// Station serves one logged-in operator. Once the backend rejects the
// session the station answers LOGIN_REQUIRED until it is restarted.
type Station struct {
	view   View
	logger *zap.Logger

	mu      sync.Mutex
	session domain.Session
	ended   bool
}

func New(sess domain.Session, view View, logger *zap.Logger) *Station {
	return &Station{
		view:    view,
		logger:  logger,
		session: sess,
	}
}

// EndSession clears the session and tears the view down. Safe to call more
// than once.
func (s *Station) EndSession() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	username := s.session.Username
	s.session = domain.Session{}
	s.mu.Unlock()

	s.view.Close()
	s.logger.Warn("session ended, login required", zap.String("username", username))
}

func (s *Station) Session() (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, !s.ended
}

func (s *Station) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpx.RequestLogger(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/session", s.getSession)
		s.view.Routes(r)
	})

	return r
}

func (s *Station) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.Session(); !ok {
			writeLoginRequired(w, httpx.NewTraceID(), s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Station) getSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.Session()
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		Username:   sess.Username,
		Role:       string(sess.Role),
		Capability: sess.Capability().String(),
	}, s.logger)
}

func writeLoginRequired(w http.ResponseWriter, traceID string, logger *zap.Logger) {
	httpx.WriteErrorResponse(w, traceID, http.StatusUnauthorized, httpx.CodeLoginRequired, "session ended, log in again", nil, logger)
}

// writeError reports a backend rejection of the session as LOGIN_REQUIRED.
// Internal failures such as a printer error keep their message so the
// operator sees what went wrong.
func writeError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if _, ok := apperrors.IsUnauthorizedError(err); ok {
		writeLoginRequired(w, traceID, logger)
		return
	}
	if ie, ok := apperrors.IsInternalError(err); ok {
		logger.Error("station operation failed", zap.String("traceId", traceID), zap.Error(err))
		httpx.WriteErrorResponse(w, traceID, http.StatusInternalServerError, httpx.CodeInternal, ie.Error(), nil, logger)
		return
	}
	httpx.WriteError(w, traceID, err, logger)
}
