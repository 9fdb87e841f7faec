package telegram

import (
	"testing"
)

func TestAuthManager_Whitelist(t *testing.T) {
	tests := []struct {
		name      string
		admins    string
		whitelist string
		userID    int64
		want      bool
	}{
		{"no whitelist allows everyone", "", "", 123, true},
		{"whitelisted user", "", "123,456", 123, true},
		{"not whitelisted", "", "123,456", 789, false},
		{"admin bypasses whitelist", "789", "123", 789, true},
		{"whitespace tolerated", "", " 123 , 456 ", 456, true},
		{"garbage ids ignored", "", "abc,123", 123, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			am := NewAuthManager(tt.admins, tt.whitelist)
			if got := am.IsAllowed(tt.userID); got != tt.want {
				t.Errorf("IsAllowed(%d) = %v, want %v", tt.userID, got, tt.want)
			}
		})
	}
}

func TestAuthManager_Admin(t *testing.T) {
	am := NewAuthManager("100", "")

	if !am.IsAdmin(100) {
		t.Error("IsAdmin(100) = false, want true")
	}
	if am.IsAdmin(200) {
		t.Error("IsAdmin(200) = true, want false")
	}
	if err := am.RequireAdmin(200); err == nil {
		t.Error("RequireAdmin(200) should fail")
	}

	// Пустой список админов: админом считается любой
	open := NewAuthManager("", "")
	if !open.IsAdmin(42) {
		t.Error("empty admin list must allow everyone")
	}
}

func TestAuthManager_RateLimit(t *testing.T) {
	am := NewAuthManager("", "")

	if err := am.CheckRateLimit(1, 2); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}
	if err := am.CheckRateLimit(1, 2); err != nil {
		t.Fatalf("second request should pass: %v", err)
	}
	if err := am.CheckRateLimit(1, 2); err == nil {
		t.Fatal("third request within a second should be limited")
	}

	// Лимит персональный
	if err := am.CheckRateLimit(2, 2); err != nil {
		t.Errorf("other user should not be limited: %v", err)
	}
}
