package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// AuthManager управляет правами доступа и частотой запросов
type AuthManager struct {
	mu              sync.Mutex
	adminIDs        map[int64]bool
	whitelist       map[int64]bool
	enableWhitelist bool
	requests        map[int64]*requestWindow
}

type requestWindow struct {
	windowStart time.Time
	count       int
}

// NewAuthManager создает менеджер авторизации из comma-separated списков ID
func NewAuthManager(adminIDsStr, whitelistStr string) *AuthManager {
	am := &AuthManager{
		adminIDs:  parseIDList(adminIDsStr),
		whitelist: parseIDList(whitelistStr),
		requests:  make(map[int64]*requestWindow),
	}
	am.enableWhitelist = len(am.whitelist) > 0
	return am
}

func parseIDList(s string) map[int64]bool {
	ids := make(map[int64]bool)
	for _, idStr := range strings.Split(s, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			ids[id] = true
		}
	}
	return ids
}

// IsAdmin проверяет права администратора.
// Пустой список админов означает, что админом считается любой.
func (am *AuthManager) IsAdmin(userID int64) bool {
	am.mu.Lock()
	defer am.mu.Unlock()

	if len(am.adminIDs) == 0 {
		return true
	}
	return am.adminIDs[userID]
}

// IsAllowed проверяет, разрешен ли доступ пользователю
func (am *AuthManager) IsAllowed(userID int64) bool {
	am.mu.Lock()
	defer am.mu.Unlock()

	if !am.enableWhitelist {
		return true
	}
	return am.adminIDs[userID] || am.whitelist[userID]
}

// CheckRateLimit ограничивает число сообщений от пользователя в секунду
func (am *AuthManager) CheckRateLimit(userID int64, maxPerSecond int) error {
	am.mu.Lock()
	defer am.mu.Unlock()

	now := time.Now()
	w, ok := am.requests[userID]
	if !ok || now.Sub(w.windowStart) >= time.Second {
		am.requests[userID] = &requestWindow{windowStart: now, count: 1}
		return nil
	}

	w.count++
	if w.count > maxPerSecond {
		wait := time.Second - now.Sub(w.windowStart)
		return fmt.Errorf("rate limit exceeded, please wait %v", wait.Round(time.Millisecond))
	}
	return nil
}

// RequireAdmin возвращает ошибку, если пользователь не администратор
func (am *AuthManager) RequireAdmin(userID int64) error {
	if !am.IsAdmin(userID) {
		return fmt.Errorf("access denied: admin permission required")
	}
	return nil
}

// Cleanup удаляет устаревшие окна rate limiting
func (am *AuthManager) Cleanup() {
	am.mu.Lock()
	defer am.mu.Unlock()

	now := time.Now()
	for userID, w := range am.requests {
		if now.Sub(w.windowStart) > 5*time.Minute {
			delete(am.requests, userID)
		}
	}
}
