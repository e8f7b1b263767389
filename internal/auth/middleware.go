package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/httpx"
)

type SessionResolver interface {
	Get(ctx context.Context, token string) (domain.Session, error)
}

type contextKey struct{}

func WithSession(ctx context.Context, sess domain.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

func SessionFrom(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(domain.Session)
	return sess, ok
}

// BearerToken accepts "Bearer <token>" and, for older clients, the bare token.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// Authenticate loads the session named by the bearer token into the request
// context. Requests without a live session get 401.
func Authenticate(resolver SessionResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				httpx.WriteError(w, httpx.NewTraceID(), apperrors.NewUnauthorizedError("missing bearer token"), logger)
				return
			}

			sess, err := resolver.Get(r.Context(), token)
			if err != nil {
				httpx.WriteError(w, httpx.NewTraceID(), err, logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// Optional behaves like Authenticate but lets anonymous requests through.
// A token that is present but unknown is still rejected.
func Optional(resolver SessionResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := resolver.Get(r.Context(), token)
			if err != nil {
				httpx.WriteError(w, httpx.NewTraceID(), err, logger)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// Require is the single capability guard used by every protected route.
func Require(capability domain.Capability, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFrom(r.Context())
			if !ok {
				httpx.WriteError(w, httpx.NewTraceID(), apperrors.NewUnauthorizedError("missing session"), logger)
				return
			}
			if sess.Capability() != capability {
				logger.Warn("capability mismatch",
					zap.String("username", sess.Username),
					zap.String("have", sess.Capability().String()),
					zap.String("want", capability.String()),
				)
				httpx.WriteError(w, httpx.NewTraceID(), apperrors.NewForbiddenError("insufficient role for this resource"), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
