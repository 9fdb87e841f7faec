package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/kirillm/trading-copilot/internal/domain"
)

// DecisionRepository реализует работу с записями циклов принятия решений
type DecisionRepository struct {
	db *sql.DB
}

// NewDecisionRepository создает новый репозиторий решений
func NewDecisionRepository(db *sql.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Save сохраняет запись цикла
func (r *DecisionRepository) Save(sessionID string, decision *domain.DecisionRecord) error {
	reasoningJSON, err := json.Marshal(decision.Recommendation.Reasoning)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO session_decisions (session_id, cycle_number, created_at, sentiment,
		                               should_trade, confidence, strategy_name, strategy_type, reasoning, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.Exec(
		query,
		sessionID,
		decision.CycleNumber,
		decision.Timestamp,
		decision.Market.Sentiment,
		decision.Recommendation.ShouldTrade,
		decision.Recommendation.Confidence,
		decision.Recommendation.Strategy.Name,
		decision.Recommendation.Strategy.Type,
		reasoningJSON,
		decision.Error,
	)
	return err
}
