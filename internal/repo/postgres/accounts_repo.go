package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/smarteventhub/internal/domain/account"
	"github.com/geocoder89/smarteventhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// one table covers organizations and event managers; the role column
// tells them apart and login is unified over both
type AccountsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAccountsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AccountsRepo {
	return &AccountsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *AccountsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const accountColumns = `id, name, email, password_hash, role, organization_id, created_at, updated_at`

func scanAccount(row pgx.Row) (account.Account, error) {
	var a account.Account

	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.OrganizationID, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		return account.Account{}, err
	}

	return a, nil
}

func (r *AccountsRepo) Create(ctx context.Context, a account.Account) (account.Account, error) {
	err := r.observe("accounts.create", func() error {
		_, execErr := r.pool.Exec(ctx, `
			INSERT INTO accounts (id, name, email, password_hash, role, organization_id, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, a.ID, a.Name, a.Email, a.PasswordHash, a.Role, a.OrganizationID, a.CreatedAt, a.UpdatedAt)
		return execErr
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return account.Account{}, account.ErrEmailTaken
		}
		return account.Account{}, err
	}

	return a, nil
}

func (r *AccountsRepo) GetByEmail(ctx context.Context, email string) (account.Account, error) {
	var a account.Account

	err := r.observe("accounts.get_by_email", func() error {
		var sErr error
		a, sErr = scanAccount(r.pool.QueryRow(ctx,
			`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
		return sErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}

	return a, nil
}

func (r *AccountsRepo) GetByID(ctx context.Context, id string) (account.Account, error) {
	var a account.Account

	err := r.observe("accounts.get_by_id", func() error {
		var sErr error
		a, sErr = scanAccount(r.pool.QueryRow(ctx,
			`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
		return sErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}

	return a, nil
}

func (r *AccountsRepo) ListEventManagers(ctx context.Context, organizationID string) ([]account.Account, error) {
	var output []account.Account

	err := r.observe("accounts.list_event_managers", func() error {
		rows, qErr := r.pool.Query(ctx, `
			SELECT `+accountColumns+`
			FROM accounts
			WHERE organization_id = $1 AND role = $2
			ORDER BY created_at DESC, id DESC
		`, organizationID, account.RoleEventManager)

		if qErr != nil {
			return qErr
		}

		defer rows.Close()

		output = make([]account.Account, 0, 8)

		for rows.Next() {
			a, sErr := scanAccount(rows)

			if sErr != nil {
				return sErr
			}

			output = append(output, a)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *AccountsRepo) Delete(ctx context.Context, id, organizationID string) error {
	return r.observe("accounts.delete", func() error {
		tag, err := r.pool.Exec(ctx, `
			DELETE FROM accounts
			WHERE id = $1 AND organization_id = $2 AND role = $3
		`, id, organizationID, account.RoleEventManager)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return account.ErrNotFound
		}

		return nil
	})
}
