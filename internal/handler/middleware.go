package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"demo-bank/internal/errors"
)

type contextKey string

const userIDKey contextKey = "userID"

// SessionVerifier maps a bearer token to the user it was issued for.
type SessionVerifier interface {
	Verify(token string) (int64, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// verified user id in the request context.
func Authenticate(verifier SessionVerifier) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, err)
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				writeError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.ErrMissingCredential
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found {
		return "", errors.ErrMissingCredential
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return "", errors.ErrInvalidCredential
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.ErrMissingCredential
	}
	return token, nil
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

// requireUserID is the handler-side guard for routes mounted behind Authenticate.
func requireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, errors.ErrMissingCredential)
		return 0, false
	}
	return userID, true
}
