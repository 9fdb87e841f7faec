package session

import (
	"sync"

	"github.com/kirillm/trading-copilot/internal/domain"
)

// handle хранит живое состояние одной сессии.
// Все обращения к session идут под mu; stop будит спящий цикл,
// done закрывается после финализации.
type handle struct {
	mu      sync.Mutex
	session *domain.Session
	stop    chan struct{}
	done    chan struct{}
}

func newHandle(s *domain.Session) *handle {
	return &handle{
		session: s,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// snapshot возвращает глубокую копию сессии для безопасного чтения извне
func (h *handle) snapshot() *domain.Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	copied := *h.session
	copied.ReasoningLog = append([]domain.DecisionRecord(nil), h.session.ReasoningLog...)
	copied.Trades = append([]domain.TradeRecord(nil), h.session.Trades...)
	if h.session.Config.Tokens != nil {
		copied.Config.Tokens = append([]string(nil), h.session.Config.Tokens...)
	}
	return &copied
}

func (h *handle) status() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.Status
}

// requestStop переводит сессию в терминальный статус и будит цикл.
// Возвращает false, если сессия уже не активна.
func (h *handle) requestStop(status string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.session.Status != domain.SessionActive {
		return false
	}
	h.session.Status = status
	close(h.stop)
	return true
}

// Registry потокобезопасный реестр сессий.
// Завершенные сессии остаются в реестре, чтобы отчеты были доступны после окончания.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*handle
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*handle)}
}

func (r *Registry) add(h *handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[h.session.ID] = h
}

func (r *Registry) get(id string) (*handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.sessions[id]
	return h, ok
}

// activeForUser возвращает активную сессию пользователя, если она есть
func (r *Registry) activeForUser(userID int64) (*handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.sessions {
		if h.session.UserID == userID && h.status() == domain.SessionActive {
			return h, true
		}
	}
	return nil, false
}

// listActive возвращает снимки всех активных сессий
func (r *Registry) listActive() []*domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*domain.Session
	for _, h := range r.sessions {
		if h.status() == domain.SessionActive {
			active = append(active, h.snapshot())
		}
	}
	return active
}
