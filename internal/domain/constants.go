package domain

import "time"

// Session statuses
const (
	SessionActive        = "active"
	SessionCompleted     = "completed"
	SessionStoppedByUser = "stopped_by_user"
)

// Risk levels
const (
	RiskConservative = "conservative"
	RiskModerate     = "moderate"
	RiskAggressive   = "aggressive"
)

// Trade types
const (
	TradeBuy  = "buy"
	TradeSell = "sell"
	TradeSwap = "swap"
)

// Strategy types (закрытый enum: неизвестные значения от оракула приводятся к StrategyCustom)
const (
	StrategyMomentum      = "momentum"
	StrategyMeanReversion = "mean_reversion"
	StrategyBreakout      = "breakout"
	StrategyRebalance     = "rebalance"
	StrategyHold          = "hold"
	StrategyCustom        = "custom"
)

// Sentiment labels
const (
	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
)

// Diversification labels
const (
	DiversificationGood     = "good"
	DiversificationModerate = "moderate"
	DiversificationPoor     = "poor"
)

// Session timing bounds
const (
	MinSessionDuration = time.Minute
	MaxSessionDuration = 365 * 24 * time.Hour

	DefaultCycleInterval = 10 * time.Minute
	MinCycleInterval     = time.Minute
	TestingCycleInterval = 10 * time.Second

	// Пауза после ошибки цикла, чтобы не молотить внешние API
	ErrorCooldown = time.Minute
)

// ValidStrategyTypes допустимые категории стратегий на границе с оракулом
var ValidStrategyTypes = map[string]bool{
	StrategyMomentum:      true,
	StrategyMeanReversion: true,
	StrategyBreakout:      true,
	StrategyRebalance:     true,
	StrategyHold:          true,
	StrategyCustom:        true,
}

// ValidTradeTypes допустимые типы сделок
var ValidTradeTypes = map[string]bool{
	TradeBuy:  true,
	TradeSell: true,
	TradeSwap: true,
}

// StableTokens токены, оцениваемые в 1.0 USD
var StableTokens = map[string]bool{
	"USDC":  true,
	"USDT":  true,
	"DAI":   true,
	"USDbC": true,
}

// DefaultTokenUniverse фиксированный набор токенов для мониторинга цен
var DefaultTokenUniverse = []string{"WETH", "WBTC", "USDC", "SOL", "LINK"}

// IsStableToken проверяет, является ли токен стейблкоином
func IsStableToken(symbol string) bool {
	return StableTokens[symbol]
}

// ClampDuration ограничивает длительность сессии допустимыми пределами
func ClampDuration(d time.Duration) time.Duration {
	if d < MinSessionDuration {
		return MinSessionDuration
	}
	if d > MaxSessionDuration {
		return MaxSessionDuration
	}
	return d
}
