package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/phone-auth-backend/internal/logger"
	"github.com/ignatzorin/phone-auth-backend/internal/pkg/apperror"
	"github.com/ignatzorin/phone-auth-backend/internal/validation"
)

// Purpose выбирает текст исходящего SMS. На ветвление логики не влияет.
type Purpose string

const (
	// PurposeAuth - код для входа или регистрации.
	PurposeAuth Purpose = "auth"
	// PurposeReset - код для подтверждения сброса пароля.
	PurposeReset Purpose = "reset"
)

// CodeStore описывает зависимость OTPService от хранилища кодов.
type CodeStore interface {
	UpsertCode(ctx context.Context, phone, code string, issuedAt time.Time) error
}

// IdentityGate проверяет существование аккаунта для номера.
type IdentityGate interface {
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
}

// DeliveryGateway отправляет готовый текст на номер.
type DeliveryGateway interface {
	Configured() bool
	Send(ctx context.Context, phone, text string) error
}

// OTPService инкапсулирует выдачу кодов подтверждения: валидацию,
// гейт по режиму, генерацию, сохранение и доставку.
type OTPService struct {
	codes      CodeStore
	accounts   IdentityGate
	gateway    DeliveryGateway
	codeLength int
	devBypass  bool
}

// IssueInput содержит данные запроса на выдачу кода.
// Mode заполняется только для login/signup потока; для сброса пароля он пуст.
type IssueInput struct {
	Phone   string
	Mode    string
	Purpose Purpose
}

// IssueResult возвращает итог выдачи кода.
type IssueResult struct {
	// DevBypass выставлен, когда доставка упала, но окружение не production
	// и код доступен оператору через лог.
	DevBypass bool
}

// NewOTPService создаёт сервис выдачи кодов. devBypass передаётся явно из
// конфигурации: граница production/не-production - инъецируемая зависимость,
// а не глобальная проверка окружения.
func NewOTPService(codes CodeStore, accounts IdentityGate, gateway DeliveryGateway, codeLength int, devBypass bool) *OTPService {
	return &OTPService{
		codes:      codes,
		accounts:   accounts,
		gateway:    gateway,
		codeLength: codeLength,
		devBypass:  devBypass,
	}
}

// RequestCode выдаёт свежий код для номера и пытается доставить его по SMS.
// Порядок строгий: сначала запись в хранилище, потом отправка - код, который
// не сохранился, доставлять нельзя, верификации его не с чем сравнить.
func (s *OTPService) RequestCode(ctx context.Context, in IssueInput) (*IssueResult, error) {
	// Предусловие деплоя, не вина клиента.
	if !s.gateway.Configured() {
		return nil, apperror.ErrSMSNotConfigured
	}

	if err := validation.ValidatePhone(in.Phone); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	// Гейт по режиму нужен только для login/signup; сброс пароля идёт без
	// проверки существования, чтобы не раскрывать наличие аккаунта.
	if in.Purpose == PurposeAuth {
		if err := validation.ValidateMode(in.Mode); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}

		exists, err := s.accounts.ExistsByPhone(ctx, in.Phone)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить существование аккаунта")
		}

		if in.Mode == validation.ModeLogin && !exists {
			return nil, apperror.ErrAccountNotFound
		}
		if in.Mode == validation.ModeSignup && exists {
			return nil, apperror.ErrAccountExists
		}
	}

	code, err := generateCode(s.codeLength)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сгенерировать код")
	}

	if err := s.codes.UpsertCode(ctx, in.Phone, code, time.Now()); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить код")
	}

	if err := s.gateway.Send(ctx, in.Phone, renderMessage(in.Purpose, code)); err != nil {
		if s.devBypass {
			// Вне production доставка необязательна: код уходит оператору в лог,
			// локальные и staging окружения работают без живого провайдера.
			if logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{
					"phone": in.Phone,
					"code":  code,
					"error": err.Error(),
				}).Warn("otp: SMS не отправлено, код доступен в логе (dev bypass)")
			}
			return &IssueResult{DevBypass: true}, nil
		}
		return nil, err
	}

	return &IssueResult{}, nil
}

// renderMessage возвращает текст SMS для назначения кода.
func renderMessage(purpose Purpose, code string) string {
	if purpose == PurposeReset {
		return fmt.Sprintf("Код для сброса пароля: %s. Никому его не сообщайте.", code)
	}
	return fmt.Sprintf("Ваш код подтверждения: %s", code)
}

// generateCode генерирует равномерный числовой код заданной длины через
// криптографический источник случайности. Диапазон [10^(n-1), 10^n) исключает
// ведущие нули.
func generateCode(length int) (string, error) {
	min := int64(1)
	for i := 1; i < length; i++ {
		min *= 10
	}

	n, err := rand.Int(rand.Reader, big.NewInt(min*9))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d", min+n.Int64()), nil
}
