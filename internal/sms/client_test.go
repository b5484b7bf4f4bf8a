package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/phone-auth-backend/internal/pkg/apperror"
)

func TestClient_Configured(t *testing.T) {
	assert.True(t, NewClient("https://sms.example.com", "key", "MyApp").Configured())
	assert.False(t, NewClient("", "key", "MyApp").Configured())
	assert.False(t, NewClient("https://sms.example.com", "", "MyApp").Configured())
	assert.False(t, NewClient("https://sms.example.com", "key", "").Configured())
}

func TestClient_Send(t *testing.T) {
	var got map[string]string
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "MyApp")

	err := client.Send(context.Background(), "+15551234567", "Ваш код подтверждения: 4821")
	assert.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "MyApp", got["from"])
	// Провайдер принимает номер без ведущего +
	assert.Equal(t, "15551234567", got["to"])
	assert.Equal(t, "Ваш код подтверждения: 4821", got["text"])
}

func TestClient_SendProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "recipient not registered"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "MyApp")

	err := client.Send(context.Background(), "+15551234567", "text")
	assert.Error(t, err)
	assert.True(t, apperror.IsDelivery(err))
}

func TestClient_SendTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // провайдер недоступен

	client := NewClient(server.URL, "test-key", "MyApp")

	err := client.Send(context.Background(), "+15551234567", "text")
	assert.Error(t, err)
	assert.True(t, apperror.IsDelivery(err))
}
