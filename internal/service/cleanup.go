package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/phone-auth-backend/internal/goroutine"
	"github.com/ignatzorin/phone-auth-backend/internal/logger"
)

// ExpiredCodeStore описывает зависимость чистки от хранилища кодов.
type ExpiredCodeStore interface {
	DeleteExpired(ctx context.Context, issuedBefore time.Time) (int64, error)
}

// StartOTPCleanup запускает фоновое удаление просроченных кодов.
// Это гигиена таблицы, а не механизм корректности: Verify всегда проверяет
// свежесть сам и на чистку не полагается.
func StartOTPCleanup(ctx context.Context, codes ExpiredCodeStore, ttl, interval time.Duration) {
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := codes.DeleteExpired(ctx, time.Now().Add(-ttl))
				if err != nil {
					if logger.Log != nil {
						logger.Log.WithFields(logrus.Fields{"error": err.Error()}).
							Warn("otp cleanup: не удалось удалить просроченные коды")
					}
					continue
				}
				if deleted > 0 && logger.Log != nil {
					logger.Log.WithFields(logrus.Fields{"deleted": deleted}).
						Debug("otp cleanup: просроченные коды удалены")
				}
			}
		}
	})
}
