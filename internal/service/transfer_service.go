package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"demo-bank/internal/domain"
	"demo-bank/internal/errors"
	"demo-bank/internal/events"
)

const DefaultTransferDescription = "Internal Transfer"

type TransferService struct {
	store     domain.LedgerStore
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewTransferService(store domain.LedgerStore, publisher events.Publisher, logger *slog.Logger) *TransferService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TransferService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

type TransferRequest struct {
	UserID        int64
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	Description   string
}

// TransferResult holds the user's accounts and transactions after the transfer.
type TransferResult struct {
	Accounts     []domain.Account
	Transactions []domain.Transaction
}

// Transfer moves funds between two accounts of the same user. Validation and
// mutation run under the user's lock, so a failed check leaves no trace and
// concurrent transfers cannot overdraw.
func (s *TransferService) Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	s.logger.Info("Processing transfer",
		"user_id", req.UserID,
		"from_account_id", req.FromAccountID,
		"to_account_id", req.ToAccountID,
		"amount", req.Amount)

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = DefaultTransferDescription
	}

	var (
		result        *TransferResult
		debit, credit domain.Transaction
	)

	err := s.store.WithLock(ctx, req.UserID, func(user *domain.User) error {
		from, okFrom := user.Account(req.FromAccountID)
		to, okTo := user.Account(req.ToAccountID)
		if !okFrom || !okTo {
			return errors.ErrAccountNotFound
		}

		if err := validateTransfer(from, to, req.Amount); err != nil {
			return err
		}

		if from.Balance.LessThan(req.Amount) {
			return errors.ErrInsufficientFunds
		}

		from.Balance = from.Balance.Sub(req.Amount)
		to.Balance = to.Balance.Add(req.Amount)

		id := nextTransactionID(user)
		date := domain.TransactionDate(s.now())
		debit = domain.Transaction{
			ID:          id,
			Date:        date,
			Description: description,
			Amount:      req.Amount.Neg(),
			Type:        domain.TransactionTypeTransfer,
			AccountID:   from.ID,
		}
		credit = domain.Transaction{
			ID:          id + 1,
			Date:        date,
			Description: description,
			Amount:      req.Amount,
			Type:        domain.TransactionTypeTransfer,
			AccountID:   to.ID,
		}
		user.NextTransactionID = id + 2
		user.Transactions = append([]domain.Transaction{credit, debit}, user.Transactions...)

		result = &TransferResult{
			Accounts:     append([]domain.Account(nil), user.Accounts...),
			Transactions: append([]domain.Transaction(nil), user.Transactions...),
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("Transfer failed", "user_id", req.UserID, "error", err)
		return nil, err
	}

	s.logger.Info("Transfer completed successfully",
		"user_id", req.UserID,
		"debit_transaction_id", debit.ID,
		"credit_transaction_id", credit.ID)

	if err := s.publisher.Publish(ctx, events.TransferEventsStream, events.TransferCompleted, events.TransferCompletedEvent{
		UserID:              req.UserID,
		FromAccountID:       debit.AccountID,
		ToAccountID:         credit.AccountID,
		Amount:              req.Amount.StringFixed(2),
		Description:         description,
		DebitTransactionID:  debit.ID,
		CreditTransactionID: credit.ID,
		Date:                debit.Date,
	}); err != nil {
		s.logger.Error("Failed to publish transfer.completed event", "user_id", req.UserID, "error", err)
	}

	return result, nil
}

// validateTransfer runs after account resolution. Amount checks come first so
// a non-positive amount is always reported as invalid_amount.
func validateTransfer(from, to *domain.Account, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return errors.ErrInvalidAmount
	}

	if !amount.Equal(amount.Round(2)) {
		return errors.NewAppError(errors.InvalidAmount, "Amount must have at most two decimal places")
	}

	if from.ID == to.ID {
		return errors.ErrSameAccountTransfer
	}

	return nil
}

// nextTransactionID never hands out an id at or below one already used, even
// for records stored without a counter.
func nextTransactionID(user *domain.User) int64 {
	next := user.NextTransactionID
	for _, txn := range user.Transactions {
		if txn.ID >= next {
			next = txn.ID + 1
		}
	}
	if next < 1 {
		next = 1
	}
	return next
}
