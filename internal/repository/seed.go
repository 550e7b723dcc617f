package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"demo-bank/internal/domain"
	"demo-bank/internal/errors"
)

const (
	DemoEmail    = "demo@bank.com"
	DemoPassword = "password123"
)

// DemoUser builds the seeded demo user with a freshly hashed password.
func DemoUser(bcryptCost int) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	return &domain.User{
		ID:           1,
		Email:        DemoEmail,
		Name:         "Demo User",
		PasswordHash: string(hash),
		Accounts: []domain.Account{
			{ID: "acc-001", Type: domain.AccountTypeChecking, AccountNumber: "****1234", Balance: decimal.RequireFromString("5420.50")},
			{ID: "acc-002", Type: domain.AccountTypeSavings, AccountNumber: "****5678", Balance: decimal.RequireFromString("12500.00")},
		},
		Transactions: []domain.Transaction{
			{ID: 1, Date: "2026-01-28", Description: "Salary Deposit", Amount: decimal.NewFromInt(3500), Type: domain.TransactionTypeCredit, AccountID: "acc-001"},
			{ID: 2, Date: "2026-01-27", Description: "Grocery Store", Amount: decimal.RequireFromString("-125.50"), Type: domain.TransactionTypeDebit, AccountID: "acc-001"},
			{ID: 3, Date: "2026-01-26", Description: "Transfer to Savings", Amount: decimal.NewFromInt(-500), Type: domain.TransactionTypeTransfer, AccountID: "acc-001"},
			{ID: 4, Date: "2026-01-26", Description: "Transfer from Checking", Amount: decimal.NewFromInt(500), Type: domain.TransactionTypeTransfer, AccountID: "acc-002"},
			{ID: 5, Date: "2026-01-25", Description: "Netflix Subscription", Amount: decimal.RequireFromString("-15.99"), Type: domain.TransactionTypeDebit, AccountID: "acc-001"},
		},
		NextTransactionID: 6,
	}, nil
}

// Seed stores the demo user unless it already exists.
func Seed(ctx context.Context, store domain.LedgerStore, bcryptCost int) error {
	_, err := store.FindUserByEmail(ctx, DemoEmail)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, errors.ErrUserNotFound) {
		return fmt.Errorf("look up demo user: %w", err)
	}

	user, err := DemoUser(bcryptCost)
	if err != nil {
		return err
	}
	return store.PutUser(ctx, user)
}
