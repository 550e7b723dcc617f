package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeCredit   TransactionType = "credit"
	TransactionTypeDebit    TransactionType = "debit"
	TransactionTypeTransfer TransactionType = "transfer"
)

// DateLayout is the calendar-date format transactions are stamped with.
const DateLayout = "2006-01-02"

type Transaction struct {
	ID          int64
	Date        string
	Description string
	Amount      decimal.Decimal
	Type        TransactionType
	AccountID   string
}

// TransactionDate formats t as the calendar date (UTC) used on transactions.
func TransactionDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
