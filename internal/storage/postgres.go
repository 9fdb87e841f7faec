package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/kirillm/trading-copilot/internal/domain"
	"github.com/kirillm/trading-copilot/internal/storage/repository"
)

// PostgresStorage фасад для работы с PostgreSQL через репозитории
type PostgresStorage struct {
	db         *sql.DB
	sessions   *repository.SessionRepository
	trades     *repository.TradeRepository
	decisions  *repository.DecisionRepository
	strategies *repository.StrategyRepository
}

// NewPostgresStorage подключается к базе, настраивает пул и применяет миграции
func NewPostgresStorage(host string, port int, user, password, dbname, sslmode string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) (*PostgresStorage, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	storage := &PostgresStorage{
		db:         db,
		sessions:   repository.NewSessionRepository(db),
		trades:     repository.NewTradeRepository(db),
		decisions:  repository.NewDecisionRepository(db),
		strategies: repository.NewStrategyRepository(db),
	}

	if err := storage.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id VARCHAR(64) PRIMARY KEY,
			user_id BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL,
			config JSONB NOT NULL DEFAULT '{}',
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL,
			cycle_count INTEGER NOT NULL DEFAULT 0,
			start_value DECIMAL(20, 8) NOT NULL DEFAULT 0,
			current_value DECIMAL(20, 8) NOT NULL DEFAULT 0,
			total_pnl DECIMAL(20, 8) NOT NULL DEFAULT 0,
			roi_percent DECIMAL(12, 4) NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS session_trades (
			id SERIAL PRIMARY KEY,
			session_id VARCHAR(64) NOT NULL REFERENCES sessions(id),
			created_at TIMESTAMP NOT NULL,
			from_token VARCHAR(20) NOT NULL,
			to_token VARCHAR(20) NOT NULL,
			amount DECIMAL(20, 8) NOT NULL,
			success BOOLEAN NOT NULL,
			result TEXT,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS session_decisions (
			id SERIAL PRIMARY KEY,
			session_id VARCHAR(64) NOT NULL REFERENCES sessions(id),
			cycle_number INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			sentiment VARCHAR(20),
			should_trade BOOLEAN NOT NULL,
			confidence DECIMAL(5, 4) NOT NULL DEFAULT 0,
			strategy_name VARCHAR(100),
			strategy_type VARCHAR(30),
			reasoning JSONB NOT NULL DEFAULT '[]',
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS strategy_performance (
			name VARCHAR(100) PRIMARY KEY,
			type VARCHAR(30) NOT NULL,
			times_used INTEGER NOT NULL DEFAULT 0,
			successful_trades INTEGER NOT NULL DEFAULT 0,
			total_pnl DECIMAL(20, 8) NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_trades_session ON session_trades(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_session_decisions_session ON session_decisions(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// CreateSession сохраняет запись о новой сессии
func (s *PostgresStorage) CreateSession(session *domain.Session) error {
	return s.sessions.Create(session)
}

// UpdateSession обновляет статус и метрики сессии
func (s *PostgresStorage) UpdateSession(session *domain.Session) error {
	return s.sessions.Update(session)
}

// SaveTrade сохраняет запись о сделке сессии
func (s *PostgresStorage) SaveTrade(sessionID string, trade *domain.TradeRecord) error {
	return s.trades.Save(sessionID, trade)
}

// SaveDecision сохраняет запись цикла принятия решений
func (s *PostgresStorage) SaveDecision(sessionID string, decision *domain.DecisionRecord) error {
	return s.decisions.Save(sessionID, decision)
}

// UpsertStrategyPerformance обновляет накопленную результативность стратегии
func (s *PostgresStorage) UpsertStrategyPerformance(name, strategyType string, success bool, pnl float64) error {
	return s.strategies.Upsert(name, strategyType, success, pnl)
}

// GetStrategyPerformance возвращает историю результативности стратегий
func (s *PostgresStorage) GetStrategyPerformance(limit int) ([]domain.StrategyPerformance, error) {
	return s.strategies.GetTop(limit)
}

// GetRecentTrades возвращает последние сделки сессии
func (s *PostgresStorage) GetRecentTrades(sessionID string, limit int) ([]domain.TradeRecord, error) {
	return s.trades.GetRecent(sessionID, limit)
}

// Close закрывает соединение с базой
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
