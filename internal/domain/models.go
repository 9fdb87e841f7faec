package domain

import "time"

// SessionConfig конфигурация автономной торговой сессии
type SessionConfig struct {
	Duration      time.Duration `json:"duration"`
	Tokens        []string      `json:"tokens"`
	RiskLevel     string        `json:"risk_level"` // conservative, moderate, aggressive
	MaxTradeSize  float64       `json:"max_trade_size"`
	CycleInterval time.Duration `json:"cycle_interval"`
	TestingMode   bool          `json:"testing_mode"`
}

// Session представляет одну автономную торговую сессию
type Session struct {
	ID          string        `json:"id"`
	UserID      int64         `json:"user_id"`
	Config      SessionConfig `json:"config"`
	Status      string        `json:"status"` // active, completed, stopped_by_user
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	CycleCount  int           `json:"cycle_count"`
	LastCycleAt time.Time     `json:"last_cycle_at"`

	// ReasoningLog и Trades append-only пока сессия активна
	ReasoningLog []DecisionRecord `json:"reasoning_log"`
	Trades       []TradeRecord    `json:"trades"`
	Performance  Performance      `json:"performance"`
}

// Performance производные метрики сессии, пересчитываются из сделок и портфеля
type Performance struct {
	TotalTrades      int     `json:"total_trades"`
	SuccessfulTrades int     `json:"successful_trades"`
	StartValue       float64 `json:"start_portfolio_value"`
	CurrentValue     float64 `json:"current_portfolio_value"`
	TotalPnL         float64 `json:"total_profit_loss"`
	ROIPercent       float64 `json:"roi_percentage"`
}

// Recompute пересчитывает PnL и ROI из стартовой и текущей стоимости.
// При нулевой стартовой стоимости ROI равен 0.
func (p *Performance) Recompute() {
	p.TotalPnL = p.CurrentValue - p.StartValue
	if p.StartValue > 0 {
		p.ROIPercent = p.TotalPnL / p.StartValue * 100
	} else {
		p.ROIPercent = 0
	}
}

// TradeRecord запись о выполненной (или неудавшейся) сделке, неизменяема после добавления
type TradeRecord struct {
	Timestamp time.Time `json:"timestamp"`
	FromToken string    `json:"from_token"`
	ToToken   string    `json:"to_token"`
	Amount    float64   `json:"amount"`
	Success   bool      `json:"success"`
	Result    string    `json:"result,omitempty"` // ответ торгового API
	Error     string    `json:"error,omitempty"`
}

// DecisionRecord запись одного цикла принятия решений
type DecisionRecord struct {
	CycleNumber    int               `json:"cycle_number"`
	Timestamp      time.Time         `json:"timestamp"`
	Market         MarketSnapshot    `json:"market"`
	Portfolio      PortfolioAnalysis `json:"portfolio"`
	Recommendation Recommendation    `json:"recommendation"`
	Warnings       []string          `json:"warnings,omitempty"`
	Executed       *TradeRecord      `json:"executed,omitempty"` // nil если сделка не выполнялась
	Error          string            `json:"error,omitempty"`
}

// MarketSnapshot срез рыночных данных, использованный в цикле
type MarketSnapshot struct {
	Prices    map[string]float64 `json:"prices"`
	News      []NewsItem         `json:"news"`
	Sentiment string             `json:"sentiment"` // bullish, bearish, neutral
}

// NewsItem новостная публикация из RSS-ленты
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// TokenBalance баланс токена (возможно агрегированный по нескольким сетям)
type TokenBalance struct {
	Symbol   string  `json:"symbol"`
	Amount   float64 `json:"amount"`
	USDValue float64 `json:"usd_value"`
	Chain    string  `json:"chain,omitempty"`
}

// PortfolioSnapshot сырой снимок портфеля из торгового API
type PortfolioSnapshot struct {
	Balances   []TokenBalance `json:"balances"`
	TotalValue float64        `json:"total_value"`
}

// PortfolioAnalysis снимок портфеля с производными оценками
type PortfolioAnalysis struct {
	Balances        []TokenBalance `json:"balances"`
	TotalValue      float64        `json:"total_value"`
	TokenCount      int            `json:"token_count"`
	Diversification string         `json:"diversification"` // good, moderate, poor
}

// Strategy стратегия, выбранная оракулом
type Strategy struct {
	Name string `json:"name"`
	Type string `json:"type"` // закрытый enum, см. constants.go
}

// TradeParams параметры сделки, предложенной оракулом
type TradeParams struct {
	Type      string  `json:"type"` // buy, sell, swap
	FromToken string  `json:"from_token"`
	ToToken   string  `json:"to_token"`
	Amount    float64 `json:"amount"`
}

// Recommendation структурированная рекомендация оракула.
// Клиент оракула всегда возвращает корректно заполненную структуру, никогда ошибку.
type Recommendation struct {
	ShouldTrade bool        `json:"should_trade"`
	Confidence  float64     `json:"confidence"` // 0.0 - 1.0
	Strategy    Strategy    `json:"strategy"`
	Trade       TradeParams `json:"trade"`
	Reasoning   []string    `json:"reasoning"`
}

// OracleRequest полный контекст для запроса рекомендации
type OracleRequest struct {
	Market    MarketSnapshot        `json:"market"`
	Portfolio PortfolioAnalysis     `json:"portfolio"`
	History   []StrategyPerformance `json:"strategy_history"`
	Config    SessionConfig         `json:"config"`
}

// StrategyPerformance накопленная результативность стратегии
type StrategyPerformance struct {
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	TimesUsed        int       `json:"times_used"`
	SuccessfulTrades int       `json:"successful_trades"`
	TotalPnL         float64   `json:"total_pnl"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TradeResult ответ торгового API на исполнение сделки
type TradeResult struct {
	Success     bool    `json:"success"`
	Transaction string  `json:"transaction,omitempty"` // JSON с деталями транзакции
	FromAmount  float64 `json:"from_amount,omitempty"`
	ToAmount    float64 `json:"to_amount,omitempty"`
	Error       string  `json:"error,omitempty"`
}
