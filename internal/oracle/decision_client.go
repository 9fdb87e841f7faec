package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillm/trading-copilot/internal/domain"
	"github.com/kirillm/trading-copilot/pkg/utils"
)

// DecisionClient переводит контекст цикла в запрос к LLM и разбирает ответ
// в фиксированную схему. Контроллер никогда не получает от него ошибку:
// любой сбой превращается в hold-рекомендацию.
type DecisionClient struct {
	chat   ChatClient
	logger *utils.Logger
}

// NewDecisionClient создает новый decision client
func NewDecisionClient(chat ChatClient, logger *utils.Logger) *DecisionClient {
	return &DecisionClient{
		chat:   chat,
		logger: logger.WithPrefix("oracle"),
	}
}

// Ask запрашивает рекомендацию у оракула.
// Fast-path: пустой портфель не требует вызова LLM — держим hold.
func (dc *DecisionClient) Ask(ctx context.Context, req domain.OracleRequest) domain.Recommendation {
	if req.Portfolio.TotalValue <= 0 || len(req.Portfolio.Balances) == 0 {
		return holdRecommendation("portfolio is empty or has zero value, nothing to trade")
	}

	messages := []Message{
		{Role: "system", Content: GetDecisionSystemPrompt()},
		{Role: "user", Content: buildDecisionPrompt(req)},
	}

	response, err := dc.chat.Chat(ctx, messages)
	if err != nil {
		dc.logger.Warn("oracle call failed: %v", err)
		return holdOnError(fmt.Sprintf("%v: %v", domain.ErrOracleUnavailable, err))
	}

	var rec domain.Recommendation
	if err := json.Unmarshal([]byte(response), &rec); err != nil {
		// Ответ может быть обернут в markdown code block
		cleaned := extractJSON(response)
		if err := json.Unmarshal([]byte(cleaned), &rec); err != nil {
			dc.logger.Warn("failed to parse oracle response: %v", err)
			return holdOnError("oracle returned malformed response")
		}
	}

	dc.normalize(&rec)

	return rec
}

// normalize приводит рекомендацию к контрактной схеме: неизвестные значения
// от оракула не считаются доверенными за пределами "валидный JSON".
func (dc *DecisionClient) normalize(rec *domain.Recommendation) {
	if rec.Confidence < 0 {
		rec.Confidence = 0
	}
	if rec.Confidence > 1 {
		rec.Confidence = 1
	}

	rec.Strategy.Type = strings.ToLower(strings.TrimSpace(rec.Strategy.Type))
	if !domain.ValidStrategyTypes[rec.Strategy.Type] {
		rec.Strategy.Type = domain.StrategyCustom
	}
	if rec.Strategy.Name == "" {
		rec.Strategy.Name = rec.Strategy.Type
	}

	if rec.Trade.Amount < 0 {
		rec.Trade.Amount = 0
	}

	if rec.ShouldTrade {
		rec.Trade.Type = strings.ToLower(strings.TrimSpace(rec.Trade.Type))
		if !domain.ValidTradeTypes[rec.Trade.Type] {
			rec.ShouldTrade = false
			rec.Reasoning = append(rec.Reasoning,
				fmt.Sprintf("recommendation downgraded to hold: unknown trade type %q", rec.Trade.Type))
		}
	}
}

// holdRecommendation фиксированная hold-рекомендация для fast-path
func holdRecommendation(reason string) domain.Recommendation {
	return domain.Recommendation{
		ShouldTrade: false,
		Confidence:  1.0,
		Strategy:    domain.Strategy{Name: "hold", Type: domain.StrategyHold},
		Reasoning:   []string{reason},
	}
}

// holdOnError фиксированная hold-рекомендация при сбое оракула
func holdOnError(reason string) domain.Recommendation {
	return domain.Recommendation{
		ShouldTrade: false,
		Confidence:  0,
		Strategy:    domain.Strategy{Name: "hold (system error)", Type: domain.StrategyHold},
		Reasoning:   []string{reason},
	}
}

// extractJSON извлекает JSON из markdown code block
func extractJSON(text string) string {
	start := strings.Index(text, "```")
	if start == -1 {
		return text
	}
	start += 3
	if strings.HasPrefix(text[start:], "json") {
		start += 4
	}

	end := strings.Index(text[start:], "```")
	if end == -1 {
		return text
	}

	return strings.TrimSpace(text[start : start+end])
}
