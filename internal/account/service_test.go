package account

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/simple-bank/simple_bank/internal/apperrors"
	"github.com/simple-bank/simple_bank/internal/notification"
	"github.com/simple-bank/simple_bank/internal/rates"
	"github.com/simple-bank/simple_bank/internal/validation"
)

type testNotifier struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

type failingSource struct{ err error }

func (s failingSource) ConversionRates(context.Context, string) ([]rates.Rate, error) {
	return nil, s.err
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTestService(source rates.Source, opts ...Option) (*Service, Repository) {
	repo := NewMemoryRepository()
	if source == nil {
		source = rates.StaticSource{
			{Code: "EUR", Multiplier: dec("0.9")},
			{Code: "JPY", Multiplier: dec("150")},
		}
	}
	return NewService(repo, validation.NewRegistry(), source, opts...), repo
}

func mustCreate(t *testing.T, svc *Service, name string) Account {
	t.Helper()
	a, err := svc.CreateAccount(context.Background(), name)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return a
}

func TestCreateAndFindAccount(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	created := mustCreate(t, svc, "Alice")
	if !created.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", created.Balance)
	}

	found, err := svc.FindAccount(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil || found.ID != created.ID || found.Name != "Alice" {
		t.Fatalf("unexpected account %+v", found)
	}

	missing, err := svc.FindAccount(ctx, "00000000-0000-0000-0000-000000000000")
	if err != nil || missing != nil {
		t.Fatalf("expected absent account, got %+v, %v", missing, err)
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")

	got, err := svc.Deposit(ctx, alice.ID, dec("100"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !got.Balance.Equal(dec("100")) {
		t.Fatalf("expected 100, got %s", got.Balance)
	}

	got, err = svc.Withdraw(ctx, alice.ID, dec("40"))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !got.Balance.Equal(dec("60")) {
		t.Fatalf("expected 60, got %s", got.Balance)
	}

	got, err = svc.Deposit(ctx, alice.ID, decimal.Zero)
	if err != nil || !got.Balance.Equal(dec("60")) {
		t.Fatalf("zero deposit: %+v, %v", got, err)
	}
}

func TestWithdrawInsufficientFundsLeavesBalance(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")
	if _, err := svc.Deposit(ctx, alice.ID, dec("100")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	_, err := svc.Withdraw(ctx, alice.ID, dec("150"))
	if !errors.Is(err, apperrors.ErrBusinessRule) {
		t.Fatalf("expected business rule error, got %v", err)
	}

	found, _ := svc.FindAccount(ctx, alice.ID)
	if !found.Balance.Equal(dec("100")) {
		t.Fatalf("balance changed to %s", found.Balance)
	}
}

func TestNegativeAmountRejectedBeforeLookup(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, "missing", dec("-5")); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("deposit: expected validation error, got %v", err)
	}
	if _, err := svc.Withdraw(ctx, "missing", dec("-5")); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("withdraw: expected validation error, got %v", err)
	}
	if _, err := svc.Transfer(ctx, "a", "b", dec("-5")); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("transfer: expected validation error, got %v", err)
	}
}

func TestMissingAccountIsAbsentNotError(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	got, err := svc.Deposit(ctx, "nope", dec("10"))
	if err != nil || got != nil {
		t.Fatalf("deposit: expected nil, nil; got %+v, %v", got, err)
	}
	got, err = svc.Withdraw(ctx, "nope", dec("10"))
	if err != nil || got != nil {
		t.Fatalf("withdraw: expected nil, nil; got %+v, %v", got, err)
	}
}

func TestTransferMovesFundsAndNotifies(t *testing.T) {
	notifier := &testNotifier{}
	svc, _ := newTestService(nil, WithNotifier(notifier))
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")
	bob := mustCreate(t, svc, "Bob")
	if _, err := svc.Deposit(ctx, alice.ID, dec("100")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	res, err := svc.Transfer(ctx, alice.ID, bob.ID, dec("30"))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !res.Sender.Balance.Equal(dec("70")) || !res.Recipient.Balance.Equal(dec("30")) {
		t.Fatalf("unexpected balances: sender %s recipient %s", res.Sender.Balance, res.Recipient.Balance)
	}

	storedBob, _ := svc.FindAccount(ctx, bob.ID)
	if !storedBob.Balance.Equal(dec("30")) {
		t.Fatalf("recipient not persisted: %s", storedBob.Balance)
	}

	if len(notifier.sent) != 1 || notifier.sent[0].Kind != notification.KindTransferReceived || notifier.sent[0].Destination != bob.ID {
		t.Fatalf("expected one notification to recipient, got %+v", notifier.sent)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")
	bob := mustCreate(t, svc, "Bob")
	if _, err := svc.Deposit(ctx, alice.ID, dec("10")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	_, err := svc.Transfer(ctx, alice.ID, bob.ID, dec("10.01"))
	if !errors.Is(err, apperrors.ErrBusinessRule) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	a, _ := svc.FindAccount(ctx, alice.ID)
	b, _ := svc.FindAccount(ctx, bob.ID)
	if !a.Balance.Equal(dec("10")) || !b.Balance.IsZero() {
		t.Fatalf("balances changed: %s %s", a.Balance, b.Balance)
	}
}

func TestTransferReportsWhichSideIsMissing(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")
	if _, err := svc.Deposit(ctx, alice.ID, dec("50")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	ghost := "5b3c9d3e-98a4-4b7e-9e84-6a9e1f0f0c11"

	res, err := svc.Transfer(ctx, alice.ID, ghost, dec("10"))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.Sender == nil || res.Recipient != nil {
		t.Fatalf("expected sender only, got %+v", res)
	}
	if !res.Sender.Balance.Equal(dec("50")) {
		t.Fatalf("sender balance changed to %s", res.Sender.Balance)
	}

	res, err = svc.Transfer(ctx, ghost, alice.ID, dec("10"))
	if err != nil || res.Sender != nil || res.Recipient == nil {
		t.Fatalf("expected recipient only, got %+v, %v", res, err)
	}

	res, err = svc.Transfer(ctx, ghost, ghost, dec("10"))
	if err != nil || res.Sender != nil || res.Recipient != nil {
		t.Fatalf("expected neither, got %+v, %v", res, err)
	}
}

func TestSelfTransferKeepsBalance(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")
	if _, err := svc.Deposit(ctx, alice.ID, dec("20")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	res, err := svc.Transfer(ctx, alice.ID, alice.ID, dec("5"))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !res.Sender.Balance.Equal(dec("20")) || !res.Recipient.Balance.Equal(dec("20")) {
		t.Fatalf("self transfer changed balance: %+v", res)
	}

	if _, err := svc.Transfer(ctx, alice.ID, alice.ID, dec("25")); !errors.Is(err, apperrors.ErrBusinessRule) {
		t.Fatalf("expected insufficient funds on self transfer, got %v", err)
	}
}

func TestConcurrentDepositsAreNotLost(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Deposit(ctx, alice.ID, dec("1")); err != nil {
				t.Errorf("deposit: %v", err)
			}
		}()
	}
	wg.Wait()

	found, _ := svc.FindAccount(ctx, alice.ID)
	if !found.Balance.Equal(dec("50")) {
		t.Fatalf("expected 50, got %s", found.Balance)
	}
}

func TestConcurrentOpposingTransfersKeepTotal(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")
	bob := mustCreate(t, svc, "Bob")
	_, _ = svc.Deposit(ctx, alice.ID, dec("100"))
	_, _ = svc.Deposit(ctx, bob.ID, dec("100"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.Transfer(ctx, alice.ID, bob.ID, dec("3"))
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.Transfer(ctx, bob.ID, alice.ID, dec("2"))
		}()
	}
	wg.Wait()

	a, _ := svc.FindAccount(ctx, alice.ID)
	b, _ := svc.FindAccount(ctx, bob.ID)
	if !a.Balance.Add(b.Balance).Equal(dec("200")) {
		t.Fatalf("total drifted: %s + %s", a.Balance, b.Balance)
	}
	if !a.Balance.Equal(dec("80")) || !b.Balance.Equal(dec("120")) {
		t.Fatalf("unexpected balances %s %s", a.Balance, b.Balance)
	}
}

func TestConvertedBalances(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")
	if _, err := svc.Deposit(ctx, alice.ID, dec("100")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	got, err := svc.ConvertedBalances(ctx, alice.ID, " eur, jpy ")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].CurrencyCode != "EUR" || !got[0].ConvertedAmount.Equal(dec("90")) {
		t.Fatalf("unexpected EUR entry %+v", got[0])
	}
	if got[1].CurrencyCode != "JPY" || !got[1].ConvertedAmount.Equal(dec("15000")) {
		t.Fatalf("unexpected JPY entry %+v", got[1])
	}
}

func TestConvertedBalancesErrors(t *testing.T) {
	ctx := context.Background()

	svc, _ := newTestService(nil)
	if _, err := svc.ConvertedBalances(ctx, "missing", "EUR"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	alice := mustCreate(t, svc, "Alice")
	if _, err := svc.ConvertedBalances(ctx, alice.ID, "EUR;JPY"); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	empty, _ := newTestService(rates.StaticSource{})
	bob := mustCreate(t, empty, "Bob")
	if _, err := empty.ConvertedBalances(ctx, bob.ID, "EUR"); !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}

	rejected, _ := newTestService(failingSource{err: rates.ErrUnprocessableFilter})
	carol := mustCreate(t, rejected, "Carol")
	if _, err := rejected.ConvertedBalances(ctx, carol.ID, "XYZ"); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error for rejected filter, got %v", err)
	}

	broken, _ := newTestService(failingSource{err: errors.New("connection reset")})
	dave := mustCreate(t, broken, "Dave")
	if _, err := broken.ConvertedBalances(ctx, dave.ID, "EUR"); !errors.Is(err, apperrors.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable for transport failure, got %v", err)
	}
}

func TestNormalizeCurrencyFilter(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"eur":          "EUR",
		" eur , jpy\t": "EUR,JPY",
		"GBP":          "GBP",
		"EUR,,JPY":     "EUR,JPY",
		",eur,":        "EUR",
		" , ":          "",
	}
	for in, want := range cases {
		if got := NormalizeCurrencyFilter(in); got != want {
			t.Fatalf("normalize %q: expected %q got %q", in, want, got)
		}
	}
}

func TestDepositThenWithdrawRestoresBalance(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")
	if _, err := svc.Deposit(ctx, alice.ID, dec("12.5")); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}

	before, _ := svc.FindAccount(ctx, alice.ID)
	if _, err := svc.Deposit(ctx, alice.ID, dec("100")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	after, err := svc.Withdraw(ctx, alice.ID, dec("100"))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !after.Balance.Equal(before.Balance) {
		t.Fatalf("expected balance %s restored, got %s", before.Balance, after.Balance)
	}
}

func TestFindAccountIsStableWithoutWrites(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")
	if _, err := svc.Deposit(ctx, alice.ID, dec("42.42")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	first, err := svc.FindAccount(ctx, alice.ID)
	if err != nil {
		t.Fatalf("first find: %v", err)
	}
	second, err := svc.FindAccount(ctx, alice.ID)
	if err != nil {
		t.Fatalf("second find: %v", err)
	}
	if first.ID != second.ID || first.Name != second.Name ||
		!first.Balance.Equal(second.Balance) || first.Version != second.Version {
		t.Fatalf("reads differ: %+v vs %+v", first, second)
	}
}

func TestAliceAndBobScenario(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")
	bob := mustCreate(t, svc, "Bob")

	if _, err := svc.Deposit(ctx, alice.ID, dec("50")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	res, err := svc.Transfer(ctx, alice.ID, bob.ID, dec("20"))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !res.Sender.Balance.Equal(dec("30")) || !res.Recipient.Balance.Equal(dec("20")) {
		t.Fatalf("expected 30/20, got %s/%s", res.Sender.Balance, res.Recipient.Balance)
	}

	if _, err := svc.Withdraw(ctx, alice.ID, dec("1000")); !errors.Is(err, apperrors.ErrBusinessRule) {
		t.Fatalf("expected business rule error, got %v", err)
	}

	storedAlice, _ := svc.FindAccount(ctx, alice.ID)
	storedBob, _ := svc.FindAccount(ctx, bob.ID)
	if !storedAlice.Balance.Equal(dec("30")) || !storedBob.Balance.Equal(dec("20")) {
		t.Fatalf("expected 30/20 after failed withdrawal, got %s/%s", storedAlice.Balance, storedBob.Balance)
	}
}

func TestConvertedBalancesIgnoresEmptyFilterSegments(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")
	if _, err := svc.Deposit(ctx, alice.ID, dec("10")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	list, err := svc.ConvertedBalances(ctx, alice.ID, "eur,,jpy")
	if err != nil {
		t.Fatalf("converted balances: %v", err)
	}
	if len(list) != 2 || list[0].CurrencyCode != "EUR" || list[1].CurrencyCode != "JPY" {
		t.Fatalf("unexpected report %+v", list)
	}
}

func TestAmountsBeyondStoredScaleAreRejected(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()
	alice := mustCreate(t, svc, "Alice")

	if _, err := svc.Deposit(ctx, alice.ID, dec("0.00005")); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	found, _ := svc.FindAccount(ctx, alice.ID)
	if !found.Balance.IsZero() {
		t.Fatalf("balance changed to %s", found.Balance)
	}
}
