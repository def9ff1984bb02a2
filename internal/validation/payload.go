package validation

import "github.com/shopspring/decimal"

// Kind identifies a validation rule in the registry.
type Kind string

const (
	KindName           Kind = "name"
	KindAmount         Kind = "amount"
	KindSufficientFund Kind = "sufficient_funds"
	KindCurrencyCodes  Kind = "currency_codes"
)

// Payload is the input handed to a validator. The set of variants is closed:
// only the types in this file implement it.
type Payload interface {
	Kind() Kind
	payload()
}

// Name carries an account holder name.
type Name struct {
	Name string
}

// Amount carries a monetary amount supplied by a caller.
type Amount struct {
	Amount decimal.Decimal
}

// Funds carries the balance an amount is drawn from.
type Funds struct {
	Balance decimal.Decimal
	Amount  decimal.Decimal
}

// CurrencyCodes carries a comma separated currency filter.
type CurrencyCodes struct {
	Codes string
}

func (Name) Kind() Kind          { return KindName }
func (Amount) Kind() Kind        { return KindAmount }
func (Funds) Kind() Kind         { return KindSufficientFund }
func (CurrencyCodes) Kind() Kind { return KindCurrencyCodes }

func (Name) payload()          {}
func (Amount) payload()        {}
func (Funds) payload()         {}
func (CurrencyCodes) payload() {}
