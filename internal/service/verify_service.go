package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/phone-auth-backend/internal/logger"
	"github.com/ignatzorin/phone-auth-backend/internal/models"
	"github.com/ignatzorin/phone-auth-backend/internal/pkg/apperror"
	"github.com/ignatzorin/phone-auth-backend/internal/repository"
	"github.com/ignatzorin/phone-auth-backend/internal/validation"
)

// VerifyResult - исход проверки кода.
type VerifyResult int

const (
	// CodeValid: код совпал и свежий; запись удалена, код одноразовый.
	CodeValid VerifyResult = iota
	// CodeInvalid: для номера есть код, но он не совпал.
	CodeInvalid
	// CodeExpired: код совпал, но окно свежести истекло.
	CodeExpired
	// CodeNotFound: для номера нет активного кода.
	CodeNotFound
)

// VerifyCodeStore описывает зависимость VerifyService от хранилища кодов.
type VerifyCodeStore interface {
	GetCode(ctx context.Context, phone string) (*models.OTPCode, error)
	DeleteCode(ctx context.Context, phone string) error
}

// AccountStore описывает зависимость VerifyService от хранилища аккаунтов.
type AccountStore interface {
	GetByPhone(ctx context.Context, phone string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateLastLoginAt(ctx context.Context, id uuid.UUID) error
}

// VerifyService проверяет коды подтверждения и завершает поток,
// который выдача кода начала: вход, регистрацию или сброс пароля.
type VerifyService struct {
	codes        VerifyCodeStore
	accounts     AccountStore
	tokenManager *TokenManager
	codeLength   int
	ttl          time.Duration
}

// AuthResult возвращает итог подтверждения входа или регистрации.
type AuthResult struct {
	Account   *models.Account
	TokenPair *TokenPair
}

// NewVerifyService создаёт сервис проверки кодов. Окно свежести ttl
// отсчитывается от issued_at записи; хранилище само записи не старит.
func NewVerifyService(codes VerifyCodeStore, accounts AccountStore, tokenManager *TokenManager, codeLength int, ttl time.Duration) *VerifyService {
	return &VerifyService{
		codes:        codes,
		accounts:     accounts,
		tokenManager: tokenManager,
		codeLength:   codeLength,
		ttl:          ttl,
	}
}

// Verify сверяет присланный код с активным кодом номера.
// Успешная проверка удаляет запись: повторная попытка вернёт CodeNotFound.
func (s *VerifyService) Verify(ctx context.Context, phone, code string) (VerifyResult, error) {
	otp, err := s.codes.GetCode(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			return CodeNotFound, nil
		}
		return CodeNotFound, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось прочитать код")
	}

	if otp.Code != code {
		return CodeInvalid, nil
	}

	if time.Since(otp.IssuedAt) > s.ttl {
		return CodeExpired, nil
	}

	if err := s.codes.DeleteCode(ctx, phone); err != nil {
		return CodeNotFound, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось погасить код")
	}

	return CodeValid, nil
}

// CompleteAuth завершает login/signup поток: проверяет код и в зависимости
// от режима либо загружает аккаунт, либо создаёт новый, и выпускает токены.
func (s *VerifyService) CompleteAuth(ctx context.Context, phone, code, mode string) (*AuthResult, error) {
	if err := validation.ValidatePhone(phone); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateMode(mode); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateCode(code, s.codeLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	if err := s.consumeCode(ctx, phone, code); err != nil {
		return nil, err
	}

	var account *models.Account
	switch mode {
	case validation.ModeLogin:
		existing, err := s.accounts.GetByPhone(ctx, phone)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return nil, apperror.ErrAccountNotFound
			}
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить аккаунт")
		}
		account = existing

		// Не критично: вход состоялся, даже если отметка не записалась.
		if err := s.accounts.UpdateLastLoginAt(ctx, account.ID); err != nil {
			if logger.Log != nil {
				logger.Log.WithFields(map[string]interface{}{
					"account_id": account.ID,
					"error":      err.Error(),
				}).Warn("verify service: не удалось обновить last_login_at")
			}
		}
	case validation.ModeSignup:
		account = &models.Account{Phone: phone}
		if err := s.accounts.Create(ctx, account); err != nil {
			// Аккаунт мог появиться между выдачей кода и подтверждением.
			if errors.Is(err, repository.ErrAccountExists) {
				return nil, apperror.ErrAccountExists
			}
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать аккаунт")
		}
	}

	tokenPair, err := s.tokenManager.GeneratePair(account)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выпустить токены")
	}

	return &AuthResult{
		Account:   account,
		TokenPair: tokenPair,
	}, nil
}

// Account возвращает аккаунт по номеру из проверенного токена.
func (s *VerifyService) Account(ctx context.Context, phone string) (*models.Account, error) {
	account, err := s.accounts.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, apperror.ErrAccountNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить аккаунт")
	}
	return account, nil
}

// ResetPassword завершает сброс пароля: проверяет код и сохраняет новый хеш.
func (s *VerifyService) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	if err := validation.ValidatePhone(phone); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateCode(code, s.codeLength); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	// Аккаунт загружается до гашения кода: сброс для несуществующего номера
	// не должен сжигать ещё действующий код.
	account, err := s.accounts.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return apperror.ErrAccountNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить аккаунт")
	}

	if err := s.consumeCode(ctx, phone, code); err != nil {
		return err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось захешировать пароль")
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, string(passHash)); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить пароль")
	}

	return nil
}

// consumeCode переводит исход Verify в ошибку для завершающих операций.
func (s *VerifyService) consumeCode(ctx context.Context, phone, code string) error {
	result, err := s.Verify(ctx, phone, code)
	if err != nil {
		return err
	}

	switch result {
	case CodeValid:
		return nil
	case CodeExpired:
		return apperror.New(apperror.ErrCodeValidation, "код подтверждения истёк, запросите новый")
	case CodeNotFound:
		return apperror.ErrOTPNotIssued
	default:
		return apperror.New(apperror.ErrCodeValidation, "неверный код подтверждения")
	}
}
