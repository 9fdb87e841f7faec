package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/kirillm/trading-copilot/internal/domain"
)

// SessionRepository реализует работу с записями сессий
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository создает новый репозиторий сессий
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create сохраняет новую сессию
func (r *SessionRepository) Create(session *domain.Session) error {
	configJSON, err := json.Marshal(session.Config)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (id, user_id, status, config, start_time, end_time, start_value, current_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.Exec(
		query,
		session.ID,
		session.UserID,
		session.Status,
		configJSON,
		session.StartTime,
		session.EndTime,
		session.Performance.StartValue,
		session.Performance.CurrentValue,
	)
	return err
}

// Update обновляет статус, счетчик циклов и метрики сессии
func (r *SessionRepository) Update(session *domain.Session) error {
	query := `
		UPDATE sessions
		SET status = $2, cycle_count = $3, current_value = $4,
		    total_pnl = $5, roi_percent = $6, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(
		query,
		session.ID,
		session.Status,
		session.CycleCount,
		session.Performance.CurrentValue,
		session.Performance.TotalPnL,
		session.Performance.ROIPercent,
	)
	return err
}
