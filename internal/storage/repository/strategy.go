package repository

import (
	"database/sql"

	"github.com/kirillm/trading-copilot/internal/domain"
)

// StrategyRepository реализует учет результативности стратегий
type StrategyRepository struct {
	db *sql.DB
}

// NewStrategyRepository создает новый репозиторий стратегий
func NewStrategyRepository(db *sql.DB) *StrategyRepository {
	return &StrategyRepository{db: db}
}

// Upsert инкрементально обновляет статистику использования стратегии
func (r *StrategyRepository) Upsert(name, strategyType string, success bool, pnl float64) error {
	successInc := 0
	if success {
		successInc = 1
	}

	query := `
		INSERT INTO strategy_performance (name, type, times_used, successful_trades, total_pnl, updated_at)
		VALUES ($1, $2, 1, $3, $4, NOW())
		ON CONFLICT (name) DO UPDATE
		SET times_used = strategy_performance.times_used + 1,
		    successful_trades = strategy_performance.successful_trades + $3,
		    total_pnl = strategy_performance.total_pnl + $4,
		    updated_at = NOW()
	`
	_, err := r.db.Exec(query, name, strategyType, successInc, pnl)
	return err
}

// GetTop возвращает наиболее используемые стратегии
func (r *StrategyRepository) GetTop(limit int) ([]domain.StrategyPerformance, error) {
	query := `
		SELECT name, type, times_used, successful_trades, total_pnl, updated_at
		FROM strategy_performance
		ORDER BY times_used DESC
		LIMIT $1
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.StrategyPerformance
	for rows.Next() {
		var s domain.StrategyPerformance
		err := rows.Scan(&s.Name, &s.Type, &s.TimesUsed, &s.SuccessfulTrades, &s.TotalPnL, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}
