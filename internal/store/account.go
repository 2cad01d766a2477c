package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/maxldruck/printcalc/types"
)

// AccountRepository handles persistence for accounts.
type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (types.Account, error) {
	const query = `
		SELECT id, name, role, password_hash
		FROM users
		WHERE id = ?`
	var account types.Account
	if err := r.db.GetContext(ctx, &account, r.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return account, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (types.Account, error) {
	const query = `
		SELECT id, name, role, password_hash
		FROM users
		WHERE name = ?`
	var account types.Account
	if err := r.db.GetContext(ctx, &account, r.db.Rebind(query), username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return account, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]types.Account, error) {
	const query = `
		SELECT id, name, role, password_hash
		FROM users
		ORDER BY name`
	accounts := []types.Account{}
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	if account.Role == "" {
		account.Role = types.RoleUser
	}

	const query = `
		INSERT INTO users (name, role, password_hash)
		VALUES (?, ?, ?)
		RETURNING id`
	if err := r.db.QueryRowxContext(
		ctx,
		r.db.Rebind(query),
		account.Username,
		account.Role,
		account.PasswordHash,
	).Scan(&account.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Account{}, ErrDuplicate
		}
		return types.Account{}, err
	}
	return account, nil
}

func (r *AccountRepository) SetRole(ctx context.Context, id int64, role string) error {
	const query = `UPDATE users SET role = ? WHERE id = ?`
	return r.execAffecting(ctx, query, role, id)
}

func (r *AccountRepository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	const query = `UPDATE users SET password_hash = ? WHERE id = ?`
	return r.execAffecting(ctx, query, hash, id)
}

func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM users WHERE id = ?`
	return r.execAffecting(ctx, query, id)
}

func (r *AccountRepository) execAffecting(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
