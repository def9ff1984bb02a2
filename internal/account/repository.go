package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/simple-bank/simple_bank/internal/apperrors"
)

// Repository persists accounts. Get returns apperrors.ErrNotFound for unknown
// ids. Save writes every account or none, failing with apperrors.ErrConflict
// when any stored version moved since it was read; on success each account's
// Version is advanced in place.
type Repository interface {
	Create(ctx context.Context, account Account) error
	Get(ctx context.Context, id string) (Account, error)
	Save(ctx context.Context, accounts ...*Account) error
}

// PostgresRepository stores accounts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an account record.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	id, err := uuid.Parse(account.ID)
	if err != nil {
		return fmt.Errorf("account id: %w", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (id, name, balance, version)
        VALUES ($1, $2, $3::numeric, $4)`, id, account.Name, account.Balance.String(), account.Version)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Get fetches an account by identifier. Identifiers that are not UUIDs cannot
// exist and are reported as not found.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, apperrors.NotFound("account not found")
	}
	row := r.db.QueryRow(ctx, `SELECT id, name, balance::text, version
        FROM accounts WHERE id = $1`, accountID)

	var (
		a       Account
		idVal   uuid.UUID
		balance string
	)
	if err := row.Scan(&idVal, &a.Name, &balance, &a.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, apperrors.NotFound("account not found")
		}
		return Account{}, fmt.Errorf("select account: %w", err)
	}
	a.ID = idVal.String()
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return Account{}, fmt.Errorf("parse balance of %s: %w", a.ID, err)
	}
	return a, nil
}

// Save updates balances in one transaction guarded by the version column.
func (r *PostgresRepository) Save(ctx context.Context, accounts ...*Account) error {
	if len(accounts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	const update = `UPDATE accounts SET balance = $2::numeric, version = version + 1
        WHERE id = $1 AND version = $3`
	for _, a := range accounts {
		id, err := uuid.Parse(a.ID)
		if err != nil {
			return apperrors.NotFound("account not found")
		}
		tag, err := tx.Exec(ctx, update, id, a.Balance.String(), a.Version)
		if err != nil {
			return fmt.Errorf("update account %s: %w", a.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflict("account was modified concurrently", nil)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	for _, a := range accounts {
		a.Version++
	}
	return nil
}
