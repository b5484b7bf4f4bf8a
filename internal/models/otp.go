package models

import "time"

// OTPCode хранит единственный активный код подтверждения для номера телефона.
// Повторная выдача перезаписывает код и время выдачи целиком, очереди кодов нет.
type OTPCode struct {
	Phone    string    `db:"phone" json:"phone"`
	Code     string    `db:"code" json:"-"`
	IssuedAt time.Time `db:"issued_at" json:"issued_at"`
}
