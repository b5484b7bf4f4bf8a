package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/phone-auth-backend/internal/models"
)

// ErrAccountNotFound возвращается, когда запись аккаунта не найдена.
var ErrAccountNotFound = errors.New("account not found")

// ErrAccountExists возвращается, когда аккаунт для номера уже создан.
var ErrAccountExists = errors.New("account already exists")

// AccountRepository отвечает за работу с таблицей accounts.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository создаёт экземпляр репозитория.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// ExistsByPhone проверяет, существует ли аккаунт для номера.
// Результат не кэшируется: системой записи владеет база.
func (r *AccountRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE phone = $1)`
	if err := r.db.GetContext(ctx, &exists, query, phone); err != nil {
		return false, fmt.Errorf("account repository: exists %w", err)
	}
	return exists, nil
}

// Create создаёт аккаунт для подтверждённого номера.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (phone)
		VALUES ($1)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(ctx, query, account.Phone).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		// Уникальный индекс по phone: гонка двух регистраций одного номера.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAccountExists
		}
		return fmt.Errorf("account repository: create %w", err)
	}

	return nil
}

// GetByPhone возвращает аккаунт по номеру телефона.
func (r *AccountRepository) GetByPhone(ctx context.Context, phone string) (*models.Account, error) {
	var account models.Account
	query := `
		SELECT id, phone, password_hash, last_login_at, created_at, updated_at
		FROM accounts
		WHERE phone = $1
	`
	if err := r.db.GetContext(ctx, &account, query, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account repository: get by phone %w", err)
	}

	return &account, nil
}

// UpdatePassword сохраняет новый хеш пароля после подтверждённого сброса.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("account repository: update password %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("account repository: update password %w", err)
	}
	if affected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// UpdateLastLoginAt обновляет время последнего входа.
func (r *AccountRepository) UpdateLastLoginAt(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET last_login_at = NOW() WHERE id = $1
	`, id); err != nil {
		return fmt.Errorf("account repository: update last_login_at %w", err)
	}
	return nil
}
