package models

import (
	"time"

	"github.com/google/uuid"
)

// Account описывает учётную запись, привязанную к номеру телефона.
// Телефон хранится в каноническом формате E.164 и является уникальным.
type Account struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Phone        string     `db:"phone" json:"phone"`
	PasswordHash *string    `db:"password_hash" json:"-"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
