package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/phone-auth-backend/internal/models"
)

// ErrOTPNotFound возвращается, когда для номера нет активного кода.
var ErrOTPNotFound = errors.New("otp code not found")

// OTPRepository отвечает за таблицу otp_codes: один активный код на номер.
type OTPRepository struct {
	db *sqlx.DB
}

// NewOTPRepository создаёт экземпляр репозитория.
func NewOTPRepository(db *sqlx.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// UpsertCode атомарно создаёт или перезаписывает код для номера.
// Конкурентные выдачи на один номер разрешаются на стороне базы:
// в таблице остаётся результат последней зафиксированной записи.
func (r *OTPRepository) UpsertCode(ctx context.Context, phone, code string, issuedAt time.Time) error {
	query := `
		INSERT INTO otp_codes (phone, code, issued_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE
		SET code = EXCLUDED.code,
			issued_at = EXCLUDED.issued_at
	`

	if _, err := r.db.ExecContext(ctx, query, phone, code, issuedAt); err != nil {
		return fmt.Errorf("otp repository: upsert %w", err)
	}

	return nil
}

// GetCode возвращает активный код для номера.
func (r *OTPRepository) GetCode(ctx context.Context, phone string) (*models.OTPCode, error) {
	var otp models.OTPCode
	query := `
		SELECT phone, code, issued_at
		FROM otp_codes
		WHERE phone = $1
	`
	if err := r.db.GetContext(ctx, &otp, query, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("otp repository: get %w", err)
	}

	return &otp, nil
}

// DeleteCode удаляет код после успешной проверки, делая его одноразовым.
func (r *OTPRepository) DeleteCode(ctx context.Context, phone string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE phone = $1`, phone); err != nil {
		return fmt.Errorf("otp repository: delete %w", err)
	}
	return nil
}

// DeleteExpired удаляет коды, выданные раньше порога. Используется фоновой чисткой;
// проверка свежести при верификации на эту чистку не полагается.
func (r *OTPRepository) DeleteExpired(ctx context.Context, issuedBefore time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE issued_at < $1`, issuedBefore)
	if err != nil {
		return 0, fmt.Errorf("otp repository: delete expired %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("otp repository: delete expired %w", err)
	}
	return affected, nil
}
