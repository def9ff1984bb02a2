package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/simple-bank/simple_bank/internal/apperrors"
	"github.com/simple-bank/simple_bank/internal/lock"
	"github.com/simple-bank/simple_bank/internal/logging"
	"github.com/simple-bank/simple_bank/internal/notification"
	"github.com/simple-bank/simple_bank/internal/rates"
	"github.com/simple-bank/simple_bank/internal/validation"
)

// MsgRatesUnavailable is reported when the rate source returned nothing usable.
const MsgRatesUnavailable = "could not retrieve currency rate data"

// Service runs account operations: validation first, then a locked
// read-modify-write against the repository.
type Service struct {
	repo       Repository
	validators *validation.Registry
	rates      rates.Source
	locker     lock.Locker
	notifier   notification.Notifier
	logger     *slog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithLocker replaces the default in-process locker.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithNotifier sets the notifier told about received transfers.
func WithNotifier(n notification.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService builds an account service instance.
func NewService(repo Repository, validators *validation.Registry, source rates.Source, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		validators: validators,
		rates:      source,
		locker:     lock.NewLocal(),
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAccount validates name and stores a new account with a zero balance.
func (s *Service) CreateAccount(ctx context.Context, name string) (Account, error) {
	if err := s.validators.Validate(validation.Name{Name: name}); err != nil {
		return Account{}, err
	}

	account := Account{
		ID:      uuid.NewString(),
		Name:    name,
		Balance: decimal.Zero,
		Version: 1,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		s.log(ctx).Error("create account", slog.Any("error", err))
		return Account{}, fmt.Errorf("create account: %w", err)
	}

	s.log(ctx).Info("account created", slog.String("account_id", account.ID))
	return account, nil
}

// FindAccount returns the account or nil when it does not exist.
func (s *Service) FindAccount(ctx context.Context, id string) (*Account, error) {
	s.log(ctx).Debug("find account", slog.String("account_id", id))
	return s.find(ctx, id)
}

// Deposit adds amount to the account balance. A missing account yields nil
// and no error.
func (s *Service) Deposit(ctx context.Context, id string, amount decimal.Decimal) (*Account, error) {
	if err := s.validators.Validate(validation.Amount{Amount: amount}); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	account, err := s.find(ctx, id)
	if err != nil || account == nil {
		return nil, err
	}

	account.Balance = account.Balance.Add(amount)
	if err := s.save(ctx, account); err != nil {
		return nil, err
	}

	s.log(ctx).Info("deposit applied", slog.String("account_id", id), slog.String("amount", amount.String()))
	return account, nil
}

// Withdraw removes amount from the account balance when funds allow. A missing
// account yields nil and no error.
func (s *Service) Withdraw(ctx context.Context, id string, amount decimal.Decimal) (*Account, error) {
	if err := s.validators.Validate(validation.Amount{Amount: amount}); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	account, err := s.find(ctx, id)
	if err != nil || account == nil {
		return nil, err
	}

	if err := s.validators.Validate(validation.Funds{Balance: account.Balance, Amount: amount}); err != nil {
		return nil, err
	}

	account.Balance = account.Balance.Sub(amount)
	if err := s.save(ctx, account); err != nil {
		return nil, err
	}

	s.log(ctx).Info("withdrawal applied", slog.String("account_id", id), slog.String("amount", amount.String()))
	return account, nil
}

// Transfer moves amount from sender to recipient. Both accounts are always
// looked up; if either is missing the result carries whichever was found and
// nothing is written.
func (s *Service) Transfer(ctx context.Context, senderID, recipientID string, amount decimal.Decimal) (TransferResult, error) {
	if err := s.validators.Validate(validation.Amount{Amount: amount}); err != nil {
		return TransferResult{}, err
	}

	release, err := s.locker.Acquire(ctx, senderID, recipientID)
	if err != nil {
		return TransferResult{}, err
	}
	defer release()

	var result TransferResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.find(gctx, senderID)
		result.Sender = a
		return err
	})
	g.Go(func() error {
		a, err := s.find(gctx, recipientID)
		result.Recipient = a
		return err
	})
	if err := g.Wait(); err != nil {
		return TransferResult{}, err
	}
	if result.Sender == nil || result.Recipient == nil {
		return result, nil
	}

	if err := s.validators.Validate(validation.Funds{Balance: result.Sender.Balance, Amount: amount}); err != nil {
		return TransferResult{}, err
	}

	if senderID == recipientID {
		if err := s.save(ctx, result.Sender); err != nil {
			return TransferResult{}, err
		}
		result.Recipient = result.Sender
		return result, nil
	}

	result.Sender.Balance = result.Sender.Balance.Sub(amount)
	result.Recipient.Balance = result.Recipient.Balance.Add(amount)
	if err := s.save(ctx, result.Sender, result.Recipient); err != nil {
		return TransferResult{}, err
	}

	s.log(ctx).Info("transfer applied",
		slog.String("sender_id", senderID),
		slog.String("recipient_id", recipientID),
		slog.String("amount", amount.String()),
	)

	if s.notifier != nil {
		err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: recipientID,
			Body:        fmt.Sprintf("You received %s from account %s", amount.String(), senderID),
		})
		if err != nil {
			s.log(ctx).Warn("transfer notification failed", slog.String("recipient_id", recipientID), slog.Any("error", err))
		}
	}

	return result, nil
}

// ConvertedBalances reports the account balance in each currency matched by
// filter. Unlike the mutating operations a missing account is an error here.
func (s *Service) ConvertedBalances(ctx context.Context, id, filter string) ([]ConvertedBalance, error) {
	account, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.NotFound("account not found")
	}

	codes := NormalizeCurrencyFilter(filter)
	if err := s.validators.Validate(validation.CurrencyCodes{Codes: codes}); err != nil {
		return nil, err
	}

	list, err := s.rates.ConversionRates(ctx, codes)
	if err != nil {
		if errors.Is(err, rates.ErrUnprocessableFilter) {
			return nil, apperrors.Validation(validation.MsgCurrencyFormat)
		}
		s.log(ctx).Error("rate lookup failed", slog.String("filter", codes), slog.Any("error", err))
		return nil, apperrors.UpstreamUnavailable(MsgRatesUnavailable, err)
	}
	if len(list) == 0 {
		return nil, apperrors.UpstreamUnavailable(MsgRatesUnavailable, nil)
	}

	out := make([]ConvertedBalance, 0, len(list))
	for _, r := range list {
		out = append(out, ConvertedBalance{
			CurrencyCode:    r.Code,
			ConvertedAmount: account.Balance.Mul(r.Multiplier),
		})
	}
	return out, nil
}

// NormalizeCurrencyFilter strips whitespace, upper-cases the codes and drops
// empty segments, keeping the caller's order.
func NormalizeCurrencyFilter(filter string) string {
	compact := strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, filter))

	codes := strings.Split(compact, ",")
	kept := codes[:0]
	for _, code := range codes {
		if code != "" {
			kept = append(kept, code)
		}
	}
	return strings.Join(kept, ",")
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

func (s *Service) find(ctx context.Context, id string) (*Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		s.log(ctx).Error("load account", slog.String("account_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("load account %s: %w", id, err)
	}
	return &account, nil
}

func (s *Service) save(ctx context.Context, accounts ...*Account) error {
	if err := s.repo.Save(ctx, accounts...); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return err
		}
		s.log(ctx).Error("save accounts", slog.Any("error", err))
		return fmt.Errorf("save accounts: %w", err)
	}
	return nil
}
