package repository

import (
	"database/sql"

	"github.com/kirillm/trading-copilot/internal/domain"
)

// TradeRepository реализует работу с записями сделок
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый репозиторий сделок
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Save сохраняет запись о сделке
func (r *TradeRepository) Save(sessionID string, trade *domain.TradeRecord) error {
	query := `
		INSERT INTO session_trades (session_id, created_at, from_token, to_token, amount, success, result, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(
		query,
		sessionID,
		trade.Timestamp,
		trade.FromToken,
		trade.ToToken,
		trade.Amount,
		trade.Success,
		trade.Result,
		trade.Error,
	)
	return err
}

// GetRecent получает последние N сделок сессии
func (r *TradeRepository) GetRecent(sessionID string, limit int) ([]domain.TradeRecord, error) {
	query := `
		SELECT created_at, from_token, to_token, amount, success,
		       COALESCE(result, ''), COALESCE(error, '')
		FROM session_trades
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var trade domain.TradeRecord
		err := rows.Scan(
			&trade.Timestamp,
			&trade.FromToken,
			&trade.ToToken,
			&trade.Amount,
			&trade.Success,
			&trade.Result,
			&trade.Error,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	return trades, rows.Err()
}
