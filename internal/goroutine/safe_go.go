package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/phone-auth-backend/internal/logger"
)

// SafeGo запускает горутину с перехватом panic. Упавшая фоновая задача
// пишет stack trace в лог вместо того, чтобы уронить процесс.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и перехватом panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer recoverPanic()
		fn(ctx)
	}()
}

func recoverPanic() {
	if r := recover(); r != nil {
		if logger.Log != nil {
			logger.Log.Errorf("panic в фоновой горутине: %v\n%s", r, debug.Stack())
		}
	}
}
