package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"demo-bank/internal/domain"
	"demo-bank/internal/errors"
)

const tokenIssuer = "demo-bank"

// AuthService issues and verifies session tokens. It holds no session state:
// a token is an HS256 JWT whose subject is the user id.
type AuthService struct {
	store     domain.LedgerStore
	secret    []byte
	ttl       time.Duration
	dummyHash []byte
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthService(store domain.LedgerStore, secret string, ttl time.Duration, bcryptCost int, logger *slog.Logger) (*AuthService, error) {
	if secret == "" {
		return nil, stderrors.New("session secret must not be empty")
	}

	// Unknown emails are checked against this hash so both failure paths do
	// the same amount of work.
	dummyHash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}

	return &AuthService{
		store:     store,
		secret:    []byte(secret),
		ttl:       ttl,
		dummyHash: dummyHash,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Issue checks the credentials and mints a session for the user.
func (s *AuthService) Issue(ctx context.Context, email, password string) (*domain.Session, *domain.User, error) {
	if email == "" || password == "" {
		bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.logger.Info("Login rejected", "reason", "blank credentials")
		return nil, nil, errors.ErrInvalidCredentials
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if !stderrors.Is(err, errors.ErrUserNotFound) {
			s.logger.Error("Failed to look up user", "error", err)
			return nil, nil, err
		}
		bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.logger.Info("Login rejected")
		return nil, nil, errors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("Login rejected", "user_id", user.ID)
		return nil, nil, errors.ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatInt(user.ID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("Session issued", "user_id", user.ID, "expires_at", expiresAt)
	return &domain.Session{Token: token, UserID: user.ID, ExpiresAt: expiresAt}, user, nil
}

// Verify returns the user id bound to token.
func (s *AuthService) Verify(token string) (int64, error) {
	if token == "" {
		return 0, errors.ErrMissingCredential
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return 0, errors.ErrInvalidCredential
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, errors.ErrInvalidCredential
	}
	return userID, nil
}
