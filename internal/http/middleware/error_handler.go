package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/phone-auth-backend/internal/logger"
	"github.com/ignatzorin/phone-auth-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки, накопленные в контексте, централизованно.
// Маскирует внутренние ошибки и возвращает понятные сообщения клиенту.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Ответ мог быть уже отправлен хэндлером
		if c.Writer.Written() {
			return
		}

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			if logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{
					"error":  err.Error(),
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}).Error("Request error")
			}

			statusCode := apperror.Status(err.Err)
			message := "внутренняя ошибка сервера"

			// Сообщение AppError безопасно показывать клиенту, причина - нет.
			var appErr *apperror.AppError
			if errors.As(err.Err, &appErr) {
				message = appErr.Message
			} else if errStr := err.Error(); errStr != "" && !containsInternalKeywords(errStr) {
				message = errStr
			}

			c.JSON(statusCode, gin.H{"error": message})
		}
	}
}

// containsInternalKeywords проверяет, содержит ли строка ключевые слова внутренних ошибок.
func containsInternalKeywords(s string) bool {
	keywords := []string{
		"sql:",
		"database",
		"connection",
		"timeout",
		"internal",
		"panic",
		"runtime",
	}

	lower := strings.ToLower(s)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
