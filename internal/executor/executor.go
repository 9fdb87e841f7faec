package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillm/trading-copilot/internal/domain"
	"github.com/kirillm/trading-copilot/internal/policy"
	"github.com/kirillm/trading-copilot/pkg/utils"
)

// Trader интерфейс торгового API
type Trader interface {
	ExecuteTrade(ctx context.Context, fromToken, toToken string, amount float64, reason string) (*domain.TradeResult, error)
}

// Executor валидирует и исполняет сделки через торговый API
type Executor struct {
	trader     Trader
	validator  *policy.Validator
	killSwitch *KillSwitch
	logger     *utils.Logger
}

// NewExecutor создает новый executor
func NewExecutor(trader Trader, validator *policy.Validator, killSwitch *KillSwitch, logger *utils.Logger) *Executor {
	return &Executor{
		trader:     trader,
		validator:  validator,
		killSwitch: killSwitch,
		logger:     logger.WithPrefix("executor"),
	}
}

// Execute проверяет и исполняет сделку. Возвращает запись о сделке
// (успешной или нет) и предупреждения валидатора. Запись с Success=false
// и непустой Error означает отклонение или отказ API; повторов внутри
// одного цикла не делается.
func (e *Executor) Execute(ctx context.Context, trade domain.TradeParams, balances []domain.TokenBalance, riskLevel, reason string) (*domain.TradeRecord, []string) {
	record := &domain.TradeRecord{
		Timestamp: time.Now(),
		FromToken: trade.FromToken,
		ToToken:   trade.ToToken,
		Amount:    trade.Amount,
	}

	if e.killSwitch != nil && e.killSwitch.IsActive() {
		record.Error = domain.ErrKillSwitchActive.Error()
		return record, nil
	}

	validation := e.validator.Validate(trade, balances, riskLevel)
	if !validation.Approved {
		e.logger.Warn("trade rejected: %s", validation.Reason)
		record.Error = validation.Reason
		return record, validation.Warnings
	}

	result, err := e.trader.ExecuteTrade(ctx, trade.FromToken, trade.ToToken, trade.Amount, reason)
	if err != nil {
		e.logger.Warn("trade execution failed: %v", err)
		record.Error = fmt.Sprintf("%v: %v", domain.ErrExecutionFailed, err)
		return record, validation.Warnings
	}

	record.Success = result.Success
	record.Result = result.Transaction
	if !result.Success {
		record.Error = result.Error
	}

	return record, validation.Warnings
}
