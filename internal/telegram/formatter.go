package telegram

import (
	"fmt"
	"strings"

	"github.com/kirillm/trading-copilot/internal/domain"
	sessionpkg "github.com/kirillm/trading-copilot/internal/session"
)

// formatSessionStatus краткий статус сессии для ответов бота
func formatSessionStatus(s *domain.Session) string {
	return sessionpkg.FormatStatus(s)
}

// Formatter форматирует ответы для пользователя
type Formatter struct{}

// NewFormatter создает новый форматтер
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatError форматирует ошибку для отправки пользователю
func (f *Formatter) FormatError(err error) string {
	return fmt.Sprintf("❌ %v", err)
}

// FormatPrice форматирует ответ на запрос цены
func (f *Formatter) FormatPrice(symbol string, price float64) string {
	return fmt.Sprintf("💵 %s: %.4f USD", symbol, price)
}

// FormatPortfolio форматирует обзор портфеля
func (f *Formatter) FormatPortfolio(analysis domain.PortfolioAnalysis) string {
	var sb strings.Builder

	sb.WriteString("💼 Портфель\n\n")

	if len(analysis.Balances) == 0 {
		sb.WriteString("Портфель пуст.\n")
		return sb.String()
	}

	for _, b := range analysis.Balances {
		line := fmt.Sprintf("• %s: %.4f (%.2f USD)", b.Symbol, b.Amount, b.USDValue)
		if b.Chain != "" {
			line += fmt.Sprintf(" [%s]", b.Chain)
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString(fmt.Sprintf("\nВсего: %.2f USD\n", analysis.TotalValue))
	sb.WriteString(fmt.Sprintf("Диверсификация: %s (%d токенов)\n",
		translateDiversification(analysis.Diversification), analysis.TokenCount))

	return sb.String()
}

// FormatTrade форматирует результат сделки с предупреждениями валидатора
func (f *Formatter) FormatTrade(record *domain.TradeRecord, warnings []string) string {
	var sb strings.Builder

	if record.Success {
		sb.WriteString(fmt.Sprintf("✅ Сделка выполнена: %s → %s, %.4f\n",
			record.FromToken, record.ToToken, record.Amount))
	} else {
		sb.WriteString(fmt.Sprintf("❌ Сделка отклонена: %s\n", record.Error))
	}

	for _, w := range warnings {
		sb.WriteString(fmt.Sprintf("⚠️ %s\n", w))
	}

	return sb.String()
}

// FormatSessions форматирует список активных сессий
func (f *Formatter) FormatSessions(sessions []*domain.Session) string {
	if len(sessions) == 0 {
		return "Нет активных сессий."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🤖 Активных сессий: %d\n\n", len(sessions)))
	for _, s := range sessions {
		sb.WriteString(fmt.Sprintf("• %s (user %d): циклов %d, PnL %+.2f USD\n",
			s.ID, s.UserID, s.CycleCount, s.Performance.TotalPnL))
	}
	return sb.String()
}

// FormatStrategies форматирует статистику стратегий
func (f *Formatter) FormatStrategies(stats []domain.StrategyPerformance) string {
	if len(stats) == 0 {
		return "Статистика стратегий пока пуста."
	}

	var sb strings.Builder
	sb.WriteString("📈 Результативность стратегий\n\n")
	for _, s := range stats {
		sb.WriteString(fmt.Sprintf("• %s (%s): использована %d раз, успешных сделок %d, PnL %+.2f USD\n",
			s.Name, s.Type, s.TimesUsed, s.SuccessfulTrades, s.TotalPnL))
	}
	return sb.String()
}

// FormatHistory форматирует историю сделок сессии
func (f *Formatter) FormatHistory(trades []domain.TradeRecord) string {
	if len(trades) == 0 {
		return "Сделок пока нет."
	}

	var sb strings.Builder
	sb.WriteString("📜 Последние сделки\n\n")
	for i, t := range trades {
		status := "✅"
		if !t.Success {
			status = "❌"
		}
		sb.WriteString(fmt.Sprintf("%d. %s %s → %s: %.4f (%s)\n",
			i+1, status, t.FromToken, t.ToToken, t.Amount,
			t.Timestamp.Format("2006-01-02 15:04")))
	}
	return sb.String()
}

func translateDiversification(d string) string {
	switch d {
	case domain.DiversificationGood:
		return "хорошая"
	case domain.DiversificationModerate:
		return "умеренная"
	default:
		return "слабая"
	}
}
