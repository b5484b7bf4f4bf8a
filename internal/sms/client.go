package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/phone-auth-backend/internal/logger"
	"github.com/ignatzorin/phone-auth-backend/internal/pkg/apperror"
)

// Client отправляет SMS через HTTP API провайдера.
// Одна отправка на вызов, без повторов: повторная выдача кода дешевле, чем дубль SMS.
type Client struct {
	baseURL    string
	apiKey     string
	sender     string
	httpClient *http.Client
}

// NewClient создаёт клиента провайдера.
func NewClient(baseURL, apiKey, sender string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		sender:  sender,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Configured сообщает, заданы ли учётные данные провайдера.
// Это предусловие деплоя, а не запроса: без него выдача кода падает сразу.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != "" && c.sender != ""
}

// Send отправляет готовый текст на номер. Провайдер принимает номер без ведущего +.
func (c *Client) Send(ctx context.Context, phone, text string) error {
	payload := map[string]string{
		"from": c.sender,
		"to":   strings.TrimPrefix(phone, "+"),
		"text": text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDelivery, "не удалось сериализовать запрос к провайдеру")
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/messages"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDelivery, "не удалось собрать запрос к провайдеру")
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Транспортная ошибка: провайдер недоступен или таймаут.
		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"phone": phone,
				"error": err.Error(),
			}).Error("sms: транспортная ошибка при отправке")
		}
		return apperror.Wrap(err, apperror.ErrCodeDelivery, "провайдер SMS недоступен")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Структурный отказ провайдера (например, незарегистрированный номер).
		// Для управления потоком различие не используется, только для диагностики.
		var errorBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errorBody)
		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"phone":  phone,
				"status": resp.StatusCode,
				"body":   errorBody,
			}).Error("sms: провайдер отклонил отправку")
		}
		return apperror.Wrap(
			fmt.Errorf("sms: код ответа %d: %v", resp.StatusCode, errorBody),
			apperror.ErrCodeDelivery,
			"провайдер SMS отклонил отправку",
		)
	}

	return nil
}
