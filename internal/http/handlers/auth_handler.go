package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/phone-auth-backend/internal/http/middleware"
	"github.com/ignatzorin/phone-auth-backend/internal/service"
)

// AuthHandler предоставляет HTTP слой для выдачи и проверки кодов подтверждения.
type AuthHandler struct {
	otp    *service.OTPService
	verify *service.VerifyService
}

// NewAuthHandler создаёт хэндлер.
func NewAuthHandler(otp *service.OTPService, verify *service.VerifyService) *AuthHandler {
	return &AuthHandler{otp: otp, verify: verify}
}

// SendLoginCode обрабатывает POST /auth/send-login-code.
// Режим гейтит выдачу: login требует существующий аккаунт, signup - его отсутствие.
func (h *AuthHandler) SendLoginCode(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
		Mode  string `json:"mode" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.otp.RequestCode(c.Request.Context(), service.IssueInput{
		Phone:   req.Phone,
		Mode:    req.Mode,
		Purpose: service.PurposeAuth,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondIssued(c, result)
}

// SendResetCode обрабатывает POST /auth/send-reset-code.
// Режима нет, существование аккаунта не проверяется.
func (h *AuthHandler) SendResetCode(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.otp.RequestCode(c.Request.Context(), service.IssueInput{
		Phone:   req.Phone,
		Purpose: service.PurposeReset,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondIssued(c, result)
}

// VerifyCode обрабатывает POST /auth/verify-code.
// Успешная проверка завершает поток: login возвращает существующий аккаунт,
// signup создаёт новый; в обоих случаях выпускается пара токенов.
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
		Code  string `json:"code" binding:"required"`
		Mode  string `json:"mode" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.verify.CompleteAuth(c.Request.Context(), req.Phone, req.Code, req.Mode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"account": result.Account,
		"tokens":  result.TokenPair,
	})
}

// ResetPassword обрабатывает POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Phone       string `json:"phone" binding:"required"`
		Code        string `json:"code" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.verify.ResetPassword(c.Request.Context(), req.Phone, req.Code, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me обрабатывает GET /auth/me: возвращает аккаунт владельца токена.
func (h *AuthHandler) Me(c *gin.Context) {
	phone, ok := c.Get(middleware.ContextPhoneKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
		return
	}

	account, err := h.verify.Account(c.Request.Context(), phone.(string))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "account": account})
}

// respondIssued отвечает на успешную выдачу кода.
func respondIssued(c *gin.Context, result *service.IssueResult) {
	if result.DevBypass {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "dev bypass"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// respondError складывает ошибку в контекст; статус и сообщение
// формирует центральный ErrorHandler.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
}
