package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/simple-bank/simple_bank/internal/apperrors"
)

// Messages surfaced to API clients.
const (
	MsgNameEmpty         = "name cannot be empty or white space"
	MsgNameInvalidChars  = "name cannot contain special characters or numbers"
	MsgNegativeAmount    = "amount cannot be negative"
	MsgAmountPrecision   = "amount cannot have more than 4 decimal places"
	MsgInsufficientFunds = "insufficient funds"
	MsgCurrencyFormat    = "currency codes must be upper case and separated only by commas"
)

// AmountScale is the number of decimal places balances are stored with.
const AmountScale = 4

// Validator checks a single kind of payload. Implementations hold no state.
type Validator interface {
	Kind() Kind
	Validate(p Payload) error
}

type nameValidator struct{}

func (nameValidator) Kind() Kind { return KindName }

func (v nameValidator) Validate(p Payload) error {
	in, ok := p.(Name)
	if !ok {
		return mismatch(v.Kind(), p)
	}
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.Validation(MsgNameEmpty)
	}
	for _, r := range in.Name {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return apperrors.Validation(MsgNameInvalidChars)
		}
	}
	return nil
}

type amountValidator struct{}

func (amountValidator) Kind() Kind { return KindAmount }

func (v amountValidator) Validate(p Payload) error {
	in, ok := p.(Amount)
	if !ok {
		return mismatch(v.Kind(), p)
	}
	if in.Amount.IsNegative() {
		return apperrors.Validation(MsgNegativeAmount)
	}
	if !in.Amount.Equal(in.Amount.Truncate(AmountScale)) {
		return apperrors.Validation(MsgAmountPrecision)
	}
	return nil
}

type fundsValidator struct{}

func (fundsValidator) Kind() Kind { return KindSufficientFund }

func (v fundsValidator) Validate(p Payload) error {
	in, ok := p.(Funds)
	if !ok {
		return mismatch(v.Kind(), p)
	}
	if in.Balance.LessThan(in.Amount) {
		return apperrors.BusinessRule(MsgInsufficientFunds)
	}
	return nil
}

type currencyCodesValidator struct{}

func (currencyCodesValidator) Kind() Kind { return KindCurrencyCodes }

// Validate accepts the empty filter, which asks the rate source for its
// default currency set.
func (v currencyCodesValidator) Validate(p Payload) error {
	in, ok := p.(CurrencyCodes)
	if !ok {
		return mismatch(v.Kind(), p)
	}
	for _, r := range in.Codes {
		if r != ',' && !unicode.IsUpper(r) {
			return apperrors.Validation(MsgCurrencyFormat)
		}
	}
	return nil
}

func mismatch(want Kind, p Payload) error {
	got := Kind("nil")
	if p != nil {
		got = p.Kind()
	}
	return apperrors.Validation(fmt.Sprintf("%s validator cannot check %s payload", want, got))
}
