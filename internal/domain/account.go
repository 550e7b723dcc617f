package domain

import (
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
)

type Account struct {
	ID            string
	Type          AccountType
	AccountNumber string
	Balance       decimal.Decimal
}
