package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ignatzorin/phone-auth-backend/internal/logger"
	"github.com/ignatzorin/phone-auth-backend/internal/models"
	"github.com/ignatzorin/phone-auth-backend/internal/pkg/apperror"
)

// mockCodeStore реализует CodeStore для тестов.
type mockCodeStore struct {
	mu         sync.Mutex
	codes      map[string]models.OTPCode
	failUpsert bool
	upserts    int
}

func newMockCodeStore() *mockCodeStore {
	return &mockCodeStore{codes: make(map[string]models.OTPCode)}
}

func (m *mockCodeStore) UpsertCode(ctx context.Context, phone, code string, issuedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsert {
		return errors.New("db down")
	}
	m.upserts++
	m.codes[phone] = models.OTPCode{Phone: phone, Code: code, IssuedAt: issuedAt}
	return nil
}

// mockIdentityGate реализует IdentityGate для тестов.
type mockIdentityGate struct {
	existing map[string]bool
	calls    int
}

func (m *mockIdentityGate) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	m.calls++
	return m.existing[phone], nil
}

// mockGateway реализует DeliveryGateway для тестов.
type mockGateway struct {
	mu           sync.Mutex
	unconfigured bool
	failSend     bool
	sentTexts    []string
	calls        int
}

func (m *mockGateway) Configured() bool {
	return !m.unconfigured
}

func (m *mockGateway) Send(ctx context.Context, phone, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failSend {
		return apperror.ErrDeliveryFailed
	}
	m.sentTexts = append(m.sentTexts, text)
	return nil
}

func newOTPServiceForTest(store *mockCodeStore, gate *mockIdentityGate, gateway *mockGateway, devBypass bool) *OTPService {
	if gate == nil {
		gate = &mockIdentityGate{existing: map[string]bool{}}
	}
	return NewOTPService(store, gate, gateway, 4, devBypass)
}

func TestOTPService_InvalidPhone(t *testing.T) {
	store := newMockCodeStore()
	gateway := &mockGateway{}
	svc := newOTPServiceForTest(store, nil, gateway, false)

	for _, phone := range []string{"", "5551234567", "+", "+555abc", "++15551234567", "8 900 555 35 35"} {
		_, err := svc.RequestCode(context.Background(), IssueInput{Phone: phone, Mode: "login", Purpose: PurposeAuth})
		if err == nil {
			t.Fatalf("ожидалась ошибка валидации для %q", phone)
		}
		if !apperror.IsValidation(err) {
			t.Fatalf("для %q ожидалась ошибка валидации, получили %v", phone, err)
		}
	}

	if store.upserts != 0 {
		t.Fatalf("записей в хранилище быть не должно, было %d", store.upserts)
	}
	if gateway.calls != 0 {
		t.Fatalf("отправок быть не должно, было %d", gateway.calls)
	}
}

func TestOTPService_InvalidMode(t *testing.T) {
	store := newMockCodeStore()
	svc := newOTPServiceForTest(store, nil, &mockGateway{}, false)

	_, err := svc.RequestCode(context.Background(), IssueInput{Phone: "+15551234567", Mode: "register", Purpose: PurposeAuth})
	if !apperror.IsValidation(err) {
		t.Fatalf("ожидалась ошибка валидации режима, получили %v", err)
	}
	if store.upserts != 0 {
		t.Fatalf("записей в хранилище быть не должно")
	}
}

func TestOTPService_LoginUnknownPhone(t *testing.T) {
	store := newMockCodeStore()
	gate := &mockIdentityGate{existing: map[string]bool{}}
	svc := newOTPServiceForTest(store, gate, &mockGateway{}, false)

	_, err := svc.RequestCode(context.Background(), IssueInput{Phone: "+15551234567", Mode: "login", Purpose: PurposeAuth})
	if !errors.Is(err, apperror.ErrAccountNotFound) {
		t.Fatalf("ожидался ErrAccountNotFound, получили %v", err)
	}
	if store.upserts != 0 {
		t.Fatalf("записей в хранилище быть не должно")
	}
}

func TestOTPService_SignupExistingPhone(t *testing.T) {
	store := newMockCodeStore()
	gate := &mockIdentityGate{existing: map[string]bool{"+15551234567": true}}
	svc := newOTPServiceForTest(store, gate, &mockGateway{}, false)

	_, err := svc.RequestCode(context.Background(), IssueInput{Phone: "+15551234567", Mode: "signup", Purpose: PurposeAuth})
	if !errors.Is(err, apperror.ErrAccountExists) {
		t.Fatalf("ожидался ErrAccountExists, получили %v", err)
	}
	if store.upserts != 0 {
		t.Fatalf("записей в хранилище быть не должно")
	}
}

func TestOTPService_ResetSkipsExistenceGate(t *testing.T) {
	store := newMockCodeStore()
	gate := &mockIdentityGate{existing: map[string]bool{}}
	gateway := &mockGateway{}
	svc := newOTPServiceForTest(store, gate, gateway, false)

	res, err := svc.RequestCode(context.Background(), IssueInput{Phone: "+15551234567", Purpose: PurposeReset})
	if err != nil {
		t.Fatalf("сброс пароля не должен гейтиться существованием: %v", err)
	}
	if res.DevBypass {
		t.Fatalf("dev bypass не ожидался")
	}
	if gate.calls != 0 {
		t.Fatalf("гейт существования не должен вызываться для сброса, вызовов %d", gate.calls)
	}
}

func TestOTPService_NotConfigured(t *testing.T) {
	store := newMockCodeStore()
	svc := newOTPServiceForTest(store, nil, &mockGateway{unconfigured: true}, true)

	_, err := svc.RequestCode(context.Background(), IssueInput{Phone: "+15551234567", Purpose: PurposeReset})
	if !errors.Is(err, apperror.ErrSMSNotConfigured) {
		t.Fatalf("ожидался ErrSMSNotConfigured, получили %v", err)
	}
	if store.upserts != 0 {
		t.Fatalf("записей в хранилище быть не должно")
	}
}

func TestOTPService_ReplacesPreviousCode(t *testing.T) {
	store := newMockCodeStore()
	gate := &mockIdentityGate{existing: map[string]bool{"+15551234567": true}}
	gateway := &mockGateway{}
	svc := newOTPServiceForTest(store, gate, gateway, false)

	ctx := context.Background()
	if _, err := svc.RequestCode(ctx, IssueInput{Phone: "+15551234567", Mode: "login", Purpose: PurposeAuth}); err != nil {
		t.Fatalf("первая выдача вернула ошибку: %v", err)
	}
	first := store.codes["+15551234567"]

	if _, err := svc.RequestCode(ctx, IssueInput{Phone: "+15551234567", Mode: "login", Purpose: PurposeAuth}); err != nil {
		t.Fatalf("вторая выдача вернула ошибку: %v", err)
	}

	if len(store.codes) != 1 {
		t.Fatalf("ожидалась ровно одна запись, получили %d", len(store.codes))
	}

	second := store.codes["+15551234567"]
	if len(second.Code) != 4 {
		t.Fatalf("ожидался код из 4 цифр, получили %q", second.Code)
	}
	if second.IssuedAt.Before(first.IssuedAt) {
		t.Fatalf("issued_at должен обновляться при перезаписи")
	}

	// Текст последнего SMS должен содержать именно сохранённый код
	lastText := gateway.sentTexts[len(gateway.sentTexts)-1]
	if want := fmt.Sprintf("Ваш код подтверждения: %s", second.Code); lastText != want {
		t.Fatalf("текст SMS %q не совпал с сохранённым кодом %q", lastText, second.Code)
	}
}

func TestOTPService_PersistBeforeSend(t *testing.T) {
	store := newMockCodeStore()
	store.failUpsert = true
	gateway := &mockGateway{}
	svc := newOTPServiceForTest(store, nil, gateway, true)

	_, err := svc.RequestCode(context.Background(), IssueInput{Phone: "+15551234567", Purpose: PurposeReset})
	if err == nil {
		t.Fatalf("ожидалась ошибка сохранения")
	}
	if gateway.calls != 0 {
		t.Fatalf("несохранённый код нельзя отправлять, отправок %d", gateway.calls)
	}
}

func TestOTPService_DevBypass(t *testing.T) {
	logger.Init("debug")
	var logBuf bytes.Buffer
	logger.SetOutput(&logBuf)

	store := newMockCodeStore()
	gateway := &mockGateway{failSend: true}
	svc := newOTPServiceForTest(store, nil, gateway, true)

	res, err := svc.RequestCode(context.Background(), IssueInput{Phone: "+15551234567", Purpose: PurposeReset})
	if err != nil {
		t.Fatalf("вне production сбой доставки не должен быть ошибкой: %v", err)
	}
	if !res.DevBypass {
		t.Fatalf("ожидался флаг DevBypass")
	}

	// Код должен быть виден оператору через лог
	code := store.codes["+15551234567"].Code
	if code == "" {
		t.Fatalf("код должен быть сохранён")
	}
	if !bytes.Contains(logBuf.Bytes(), []byte(code)) {
		t.Fatalf("код %q должен попасть в операторский лог", code)
	}
}

func TestOTPService_ProductionDeliveryFailure(t *testing.T) {
	store := newMockCodeStore()
	gateway := &mockGateway{failSend: true}
	svc := newOTPServiceForTest(store, nil, gateway, false)

	_, err := svc.RequestCode(context.Background(), IssueInput{Phone: "+15551234567", Purpose: PurposeReset})
	if !apperror.IsDelivery(err) {
		t.Fatalf("в production ожидалась ошибка доставки, получили %v", err)
	}

	// Код уже записан и остаётся в хранилище: выдача не прошла, но запись цела
	if store.upserts != 1 {
		t.Fatalf("ожидалась одна запись, было %d", store.upserts)
	}
	if store.codes["+15551234567"].Code == "" {
		t.Fatalf("сохранённый код не должен пропадать при сбое доставки")
	}
}

func TestOTPService_ConcurrentDistinctPhones(t *testing.T) {
	store := newMockCodeStore()
	gateway := &mockGateway{}
	svc := newOTPServiceForTest(store, nil, gateway, false)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			phone := fmt.Sprintf("+1555123%04d", i)
			if _, err := svc.RequestCode(context.Background(), IssueInput{Phone: phone, Purpose: PurposeReset}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("конкурентная выдача вернула ошибку: %v", err)
	}

	if len(store.codes) != n {
		t.Fatalf("ожидалось %d записей, получили %d", n, len(store.codes))
	}
	for phone, otp := range store.codes {
		if len(otp.Code) != 4 {
			t.Fatalf("код для %s повреждён: %q", phone, otp.Code)
		}
	}
}

func TestGenerateCode_Width(t *testing.T) {
	for length := 4; length <= 8; length++ {
		for i := 0; i < 50; i++ {
			code, err := generateCode(length)
			if err != nil {
				t.Fatalf("генерация вернула ошибку: %v", err)
			}
			if len(code) != length {
				t.Fatalf("ожидалась длина %d, получили %q", length, code)
			}
			if code[0] == '0' {
				t.Fatalf("ведущих нулей быть не должно: %q", code)
			}
		}
	}
}
