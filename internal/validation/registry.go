package validation

import (
	"fmt"

	"github.com/simple-bank/simple_bank/internal/apperrors"
)

// Registry maps each Kind to its Validator. It is read-only after construction
// and safe for concurrent use.
type Registry struct {
	validators map[Kind]Validator
}

// NewRegistry returns the registry with every built-in rule registered.
func NewRegistry() *Registry {
	return newRegistry(
		nameValidator{},
		amountValidator{},
		fundsValidator{},
		currencyCodesValidator{},
	)
}

func newRegistry(validators ...Validator) *Registry {
	r := &Registry{validators: make(map[Kind]Validator, len(validators))}
	for _, v := range validators {
		r.validators[v.Kind()] = v
	}
	return r
}

// Get returns the validator registered for kind. A missing kind is a wiring
// bug and is reported as ErrNotFound.
func (r *Registry) Get(kind Kind) (Validator, error) {
	v, ok := r.validators[kind]
	if !ok {
		return nil, apperrors.NotFound(fmt.Sprintf("no validator registered for %q", kind))
	}
	return v, nil
}

// Validate runs the validator matching the payload's kind.
func (r *Registry) Validate(p Payload) error {
	if p == nil {
		return apperrors.Validation("missing validation payload")
	}
	v, err := r.Get(p.Kind())
	if err != nil {
		return err
	}
	return v.Validate(p)
}
