package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"demo-bank/internal/domain"
	"demo-bank/internal/errors"
)

const (
	selectUserByID = `
		SELECT id, email, name, password_hash, next_transaction_id
		FROM users WHERE id = $1
	`
	selectUserByEmail = `
		SELECT id, email, name, password_hash, next_transaction_id
		FROM users WHERE email = $1
	`
)

// PostgresStore keeps the ledger in Postgres. Row locks on the user record
// provide the per-user exclusion: FOR UPDATE for writers, FOR SHARE for readers.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ domain.LedgerStore = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var user *domain.User
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		user, err = s.loadUser(ctx, tx, selectUserByID+" FOR SHARE", id)
		return err
	})
	return user, err
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user *domain.User
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		user, err = s.loadUser(ctx, tx, selectUserByEmail+" FOR SHARE", email)
		return err
	})
	return user, err
}

func (s *PostgresStore) PutUser(ctx context.Context, user *domain.User) error {
	err := s.withTransaction(ctx, func(tx *sql.Tx) error {
		return s.saveUser(ctx, tx, nil, user)
	})
	if err != nil {
		return err
	}

	s.logger.Info("User stored", "user_id", user.ID)
	return nil
}

// WithLock locks the user row for the duration of a database transaction.
// The transaction is rolled back when fn fails.
func (s *PostgresStore) WithLock(ctx context.Context, id int64, fn func(user *domain.User) error) error {
	return s.withTransaction(ctx, func(tx *sql.Tx) error {
		user, err := s.loadUser(ctx, tx, selectUserByID+" FOR UPDATE", id)
		if err != nil {
			return err
		}

		original := user.Clone()
		if err := fn(user); err != nil {
			return err
		}

		return s.saveUser(ctx, tx, original, user)
	})
}

func (s *PostgresStore) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) loadUser(ctx context.Context, db SQLExecutor, query string, arg any) (*domain.User, error) {
	var user domain.User
	err := db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.NextTransactionID,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrUserNotFound
		}
		s.logger.Error("Failed to get user", "arg", arg, "error", err)
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user.Accounts, err = s.loadAccounts(ctx, db, user.ID); err != nil {
		return nil, err
	}
	if user.Transactions, err = s.loadTransactions(ctx, db, user.ID); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *PostgresStore) loadAccounts(ctx context.Context, db SQLExecutor, userID int64) ([]domain.Account, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, type, account_number, balance
		FROM accounts WHERE user_id = $1
		ORDER BY position
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		var balanceStr string
		if err := rows.Scan(&account.ID, &account.Type, &account.AccountNumber, &balanceStr); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}

		account.Balance, err = decimal.NewFromString(balanceStr)
		if err != nil {
			s.logger.Error("Failed to parse balance", "account_id", account.ID, "balance_str", balanceStr, "error", err)
			return nil, fmt.Errorf("parse balance of %s: %w", account.ID, err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) loadTransactions(ctx context.Context, db SQLExecutor, userID int64) ([]domain.Transaction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, to_char(date, 'YYYY-MM-DD'), description, amount, type, account_id
		FROM transactions WHERE user_id = $1
		ORDER BY seq DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var txn domain.Transaction
		var amountStr string
		if err := rows.Scan(&txn.ID, &txn.Date, &txn.Description, &amountStr, &txn.Type, &txn.AccountID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		txn.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("parse amount of transaction %d: %w", txn.ID, err)
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

// saveUser writes user back. Accounts are upserted; transactions are
// append-only, so only those missing from original are inserted, oldest
// first so that seq order matches list order.
func (s *PostgresStore) saveUser(ctx context.Context, db SQLExecutor, original, user *domain.User) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, next_transaction_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			password_hash = EXCLUDED.password_hash,
			next_transaction_id = EXCLUDED.next_transaction_id
	`, user.ID, user.Email, user.Name, user.PasswordHash, user.NextTransactionID)
	if err != nil {
		s.logger.Error("Failed to save user", "user_id", user.ID, "error", err)
		return fmt.Errorf("save user: %w", err)
	}

	for position, account := range user.Accounts {
		_, err := db.ExecContext(ctx, `
			INSERT INTO accounts (user_id, id, position, type, account_number, balance)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, id) DO UPDATE SET
				position = EXCLUDED.position,
				type = EXCLUDED.type,
				account_number = EXCLUDED.account_number,
				balance = EXCLUDED.balance
		`, user.ID, account.ID, position, account.Type, account.AccountNumber, account.Balance.StringFixed(2))
		if err != nil {
			s.logger.Error("Failed to save account", "user_id", user.ID, "account_id", account.ID, "error", err)
			return fmt.Errorf("save account %s: %w", account.ID, err)
		}
	}

	known := make(map[int64]bool)
	if original != nil {
		for _, txn := range original.Transactions {
			known[txn.ID] = true
		}
	}

	for i := len(user.Transactions) - 1; i >= 0; i-- {
		txn := user.Transactions[i]
		if known[txn.ID] {
			continue
		}

		_, err := db.ExecContext(ctx, `
			INSERT INTO transactions (user_id, id, account_id, date, description, amount, type)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, id) DO NOTHING
		`, user.ID, txn.ID, txn.AccountID, txn.Date, txn.Description, txn.Amount.StringFixed(2), txn.Type)
		if err != nil {
			s.logger.Error("Failed to create transaction", "user_id", user.ID, "transaction_id", txn.ID, "error", err)
			return fmt.Errorf("create transaction %d: %w", txn.ID, err)
		}
	}
	return nil
}
