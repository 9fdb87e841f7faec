package market

import (
	"github.com/kirillm/trading-copilot/internal/domain"
)

// AnalyzePortfolio оценивает портфель в USD и присваивает оценку диверсификации.
// Нестейбл-токены оцениваются по живой цене из prices, стейблкоины по 1.0.
// Токены без известной цены сохраняют оценку торгового API.
func AnalyzePortfolio(snapshot *domain.PortfolioSnapshot, prices map[string]float64) domain.PortfolioAnalysis {
	analysis := domain.PortfolioAnalysis{}
	if snapshot == nil {
		analysis.Diversification = domain.DiversificationPoor
		return analysis
	}

	seen := make(map[string]bool)
	for _, bal := range snapshot.Balances {
		if bal.Amount <= 0 {
			continue
		}

		value := bal.USDValue
		switch {
		case domain.IsStableToken(bal.Symbol):
			value = bal.Amount * 1.0
		default:
			if price, ok := prices[bal.Symbol]; ok && price > 0 {
				value = bal.Amount * price
			}
		}

		analysis.Balances = append(analysis.Balances, domain.TokenBalance{
			Symbol:   bal.Symbol,
			Amount:   bal.Amount,
			USDValue: value,
			Chain:    bal.Chain,
		})
		analysis.TotalValue += value
		seen[bal.Symbol] = true
	}

	analysis.TokenCount = len(seen)
	analysis.Diversification = classifyDiversification(analysis.TokenCount)

	return analysis
}

// classifyDiversification грубая оценка диверсификации по числу различных токенов
func classifyDiversification(tokenCount int) string {
	switch {
	case tokenCount >= 3:
		return domain.DiversificationGood
	case tokenCount == 2:
		return domain.DiversificationModerate
	default:
		return domain.DiversificationPoor
	}
}

// TotalAvailable суммарный доступный баланс токена по всем сетям
func TotalAvailable(balances []domain.TokenBalance, symbol string) float64 {
	var total float64
	for _, bal := range balances {
		if bal.Symbol == symbol {
			total += bal.Amount
		}
	}
	return total
}
