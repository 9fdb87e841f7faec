package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirillm/trading-copilot/internal/domain"
)

// FormatReport собирает человекочитаемый итоговый отчет по сессии
func FormatReport(s *domain.Session) string {
	var b strings.Builder

	title := "Сессия завершена"
	if s.Status == domain.SessionStoppedByUser {
		title = "Сессия остановлена"
	}

	b.WriteString(fmt.Sprintf("🏁 %s\n\n", title))
	b.WriteString(fmt.Sprintf("ID: %s\n", s.ID))
	b.WriteString(fmt.Sprintf("Длительность: %s\n", formatDuration(time.Since(s.StartTime))))
	b.WriteString(fmt.Sprintf("Циклов: %d\n", s.CycleCount))
	b.WriteString(fmt.Sprintf("Сделок: %d (успешных %d)\n\n",
		s.Performance.TotalTrades, s.Performance.SuccessfulTrades))

	b.WriteString(fmt.Sprintf("💰 Портфель: %.2f → %.2f USD\n",
		s.Performance.StartValue, s.Performance.CurrentValue))

	pnlEmoji := "📈"
	if s.Performance.TotalPnL < 0 {
		pnlEmoji = "📉"
	}
	b.WriteString(fmt.Sprintf("%s PnL: %+.2f USD (%+.2f%%)\n",
		pnlEmoji, s.Performance.TotalPnL, s.Performance.ROIPercent))

	if len(s.Trades) > 0 {
		b.WriteString("\nПоследние сделки:\n")
		trades := s.Trades
		if len(trades) > 5 {
			trades = trades[len(trades)-5:]
		}
		for _, t := range trades {
			status := "✅"
			if !t.Success {
				status = "❌"
			}
			b.WriteString(fmt.Sprintf("%s %s → %s: %.4f\n", status, t.FromToken, t.ToToken, t.Amount))
		}
	}

	if last := lastReasoning(s); last != "" {
		b.WriteString(fmt.Sprintf("\n💭 Последнее решение: %s\n", last))
	}

	return b.String()
}

// FormatStatus собирает краткий статус активной сессии
func FormatStatus(s *domain.Session) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🤖 Сессия %s\n", s.ID))
	b.WriteString(fmt.Sprintf("Статус: %s\n", s.Status))

	if s.Status == domain.SessionActive {
		remaining := time.Until(s.EndTime)
		if remaining < 0 {
			remaining = 0
		}
		b.WriteString(fmt.Sprintf("Осталось: %s\n", formatDuration(remaining)))
	}

	b.WriteString(fmt.Sprintf("Циклов: %d, сделок: %d\n", s.CycleCount, s.Performance.TotalTrades))
	b.WriteString(fmt.Sprintf("PnL: %+.2f USD (%+.2f%%)\n",
		s.Performance.TotalPnL, s.Performance.ROIPercent))

	if last := lastReasoning(s); last != "" {
		b.WriteString(fmt.Sprintf("💭 %s\n", last))
	}

	return b.String()
}

func lastReasoning(s *domain.Session) string {
	if len(s.ReasoningLog) == 0 {
		return ""
	}
	reasoning := s.ReasoningLog[len(s.ReasoningLog)-1].Recommendation.Reasoning
	if len(reasoning) == 0 {
		return ""
	}
	return reasoning[0]
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d >= 24*time.Hour {
		days := d / (24 * time.Hour)
		hours := (d % (24 * time.Hour)) / time.Hour
		return fmt.Sprintf("%dд %dч", days, hours)
	}
	if d >= time.Hour {
		return fmt.Sprintf("%dч %dм", d/time.Hour, (d%time.Hour)/time.Minute)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dм %dс", d/time.Minute, (d%time.Minute)/time.Second)
	}
	return fmt.Sprintf("%dс", d/time.Second)
}
