package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/agaaaptr/open-socmed/internal/post"
	"github.com/agaaaptr/open-socmed/internal/shared/jwt"
)

type HandlerFunc func(http.ResponseWriter, *http.Request) error

// APIError is the body of every non-2xx response.
type APIError struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
	Status  int    `json:"status"`
}

// StatusError carries the status and reason a handler wants on the wire.
type StatusError struct {
	Status int
	Reason string
	Err    error
}

func (e *StatusError) Error() string { return e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

func Errorf(status int, reason, format string, args ...any) error {
	return &StatusError{Status: status, Reason: reason, Err: fmt.Errorf(format, args...)}
}

func BadRequest(reason string, err error) error {
	return &StatusError{Status: http.StatusBadRequest, Reason: reason, Err: err}
}

type ctxKey struct{}

var ErrUnauthorized = errors.New("unauthorized")

func WriteJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, err error, reason string) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	WriteJSON(w, APIError{Message: err.Error(), Reason: reason, Status: status}, status)
}

// Wrap adapts fn to http.Handler and turns its error into a JSON body.
func Wrap(fn HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		status, reason := classify(err)
		if status >= http.StatusInternalServerError {
			zap.L().Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			WriteError(w, status, errors.New("internal server error"), reason)
			return
		}
		WriteError(w, status, err, reason)
	})
}

func classify(err error) (int, string) {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return se.Status, se.Reason
	case errors.Is(err, ErrUnauthorized), errors.Is(err, post.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, post.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, post.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, post.ErrEmptyContent), errors.Is(err, post.ErrContentTooLong):
		return http.StatusBadRequest, "validation"
	default:
		return http.StatusInternalServerError, ""
	}
}

func Decode[T any](r *http.Request) (T, error) {
	var t T
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		return t, BadRequest("bad_json", fmt.Errorf("invalid request body: %w", err))
	}
	return t, nil
}

func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the caller's user id on the request context.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := BearerToken(r)
			if tok == "" {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "missing_bearer")
				return
			}
			uid, err := jwt.Parse(secret, tok)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "invalid_token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), uid)))
		})
	}
}

func WithUser(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKey{}, uid)
}

func UserFromCtx(r *http.Request) (string, error) {
	uid, _ := r.Context().Value(ctxKey{}).(string)
	if uid == "" {
		return "", ErrUnauthorized
	}
	return uid, nil
}

func QueryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
