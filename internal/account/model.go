package account

import "github.com/shopspring/decimal"

// Account is a named holder of a single-currency balance.
type Account struct {
	ID      string
	Name    string
	Balance decimal.Decimal
	// Version increases on every save and guards against lost updates.
	Version int64
}

// TransferResult pairs the two sides of a transfer. A nil side was not found,
// in which case no balance was changed.
type TransferResult struct {
	Sender    *Account
	Recipient *Account
}

// ConvertedBalance is an account balance expressed in another currency.
type ConvertedBalance struct {
	CurrencyCode    string
	ConvertedAmount decimal.Decimal
}
