package validation

import "testing"

func TestValidatePhone(t *testing.T) {
	valid := []string{"+15551234567", "+79001234567", "+442071234567", "+8613912345678"}
	for _, phone := range valid {
		if err := ValidatePhone(phone); err != nil {
			t.Fatalf("номер %q должен проходить: %v", phone, err)
		}
	}

	invalid := []string{
		"",
		"5551234567",        // без +
		"+",                 // только знак
		"+0551234567",       // ведущий ноль после +
		"+155512",           // меньше 7 цифр
		"+1234567890123456", // больше 15 цифр
		"+1 555 123 4567",   // пробелы
		"+1555abc4567",      // буквы
		"8(900)555-35-35",   // национальный формат
	}
	for _, phone := range invalid {
		if err := ValidatePhone(phone); err == nil {
			t.Fatalf("номер %q не должен проходить", phone)
		}
	}
}

func TestValidateMode(t *testing.T) {
	if err := ValidateMode(ModeLogin); err != nil {
		t.Fatalf("login должен проходить: %v", err)
	}
	if err := ValidateMode(ModeSignup); err != nil {
		t.Fatalf("signup должен проходить: %v", err)
	}
	for _, mode := range []string{"", "register", "LOGIN", "reset"} {
		if err := ValidateMode(mode); err == nil {
			t.Fatalf("режим %q не должен проходить", mode)
		}
	}
}

func TestValidateCode(t *testing.T) {
	if err := ValidateCode("4821", 4); err != nil {
		t.Fatalf("код 4821 должен проходить: %v", err)
	}
	if err := ValidateCode("482136", 6); err != nil {
		t.Fatalf("код 482136 должен проходить: %v", err)
	}
	for _, code := range []string{"", "482", "48213", "48a1", "48 1"} {
		if err := ValidateCode(code, 4); err == nil {
			t.Fatalf("код %q не должен проходить", code)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("correct-horse-battery"); err != nil {
		t.Fatalf("пароль должен проходить: %v", err)
	}
	for _, password := range []string{"", "   ", "short"} {
		if err := ValidatePassword(password); err == nil {
			t.Fatalf("пароль %q не должен проходить", password)
		}
	}
}
