package service

import (
	"context"
	"log/slog"

	"demo-bank/internal/domain"
)

// QueryService is the read side of the ledger.
type QueryService struct {
	store  domain.LedgerStore
	logger *slog.Logger
}

func NewQueryService(store domain.LedgerStore, logger *slog.Logger) *QueryService {
	return &QueryService{
		store:  store,
		logger: logger,
	}
}

func (s *QueryService) ListAccounts(ctx context.Context, userID int64) ([]domain.Account, error) {
	s.logger.Debug("Listing accounts", "user_id", userID)

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Accounts, nil
}

// ListTransactions returns the user's transactions, most recent first.
func (s *QueryService) ListTransactions(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	s.logger.Debug("Listing transactions", "user_id", userID)

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Transactions, nil
}
