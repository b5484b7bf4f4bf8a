package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Константы валидации
const (
	// E.164 допускает максимум 15 цифр после знака +
	MaxPhoneDigits    = 15
	MinPhoneDigits    = 7
	MinPasswordLength = 8
	MaxPasswordLength = 72 // ограничение bcrypt

	ModeLogin  = "login"
	ModeSignup = "signup"
)

// phoneRegex проверяет канонический формат E.164: ведущий + и только цифры.
var phoneRegex = regexp.MustCompile(`^\+[1-9][0-9]+$`)

// codeRegex проверяет, что код состоит только из цифр.
var codeRegex = regexp.MustCompile(`^[0-9]+$`)

// ValidatePhone проверяет номер телефона в формате E.164.
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("номер телефона обязателен")
	}

	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("номер телефона должен быть в формате E.164: знак + и цифры")
	}

	digits := len(phone) - 1
	if digits < MinPhoneDigits || digits > MaxPhoneDigits {
		return fmt.Errorf("номер телефона должен содержать от %d до %d цифр", MinPhoneDigits, MaxPhoneDigits)
	}

	return nil
}

// ValidateMode проверяет режим входа: login или signup.
func ValidateMode(mode string) error {
	if mode != ModeLogin && mode != ModeSignup {
		return fmt.Errorf("режим должен быть login или signup")
	}
	return nil
}

// ValidateCode проверяет код подтверждения нужной длины.
func ValidateCode(code string, length int) error {
	if code == "" {
		return fmt.Errorf("код подтверждения обязателен")
	}
	if len(code) != length || !codeRegex.MatchString(code) {
		return fmt.Errorf("код подтверждения должен состоять из %d цифр", length)
	}
	return nil
}

// ValidatePassword проверяет новый пароль при сбросе.
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("пароль обязателен")
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("пароль должен быть не менее %d символов", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("пароль должен быть не более %d символов", MaxPasswordLength)
	}
	return nil
}
