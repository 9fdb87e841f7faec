package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kirillm/trading-copilot/internal/domain"
)

// GetDecisionSystemPrompt системный промпт decision-оракула
func GetDecisionSystemPrompt() string {
	return `You are an autonomous crypto trading strategist operating a sandbox account.
You receive a market snapshot, the current portfolio and historical strategy performance,
and you answer with exactly one trade recommendation in strict JSON.
Never risk more than the configured max trade size. Prefer holding over low-confidence trades.`
}

// buildDecisionPrompt собирает полный контекст цикла в промпт для оракула
func buildDecisionPrompt(req domain.OracleRequest) string {
	portfolioJSON, _ := json.MarshalIndent(req.Portfolio, "", "  ")
	pricesJSON, _ := json.MarshalIndent(req.Market.Prices, "", "  ")
	historyJSON, _ := json.MarshalIndent(req.History, "", "  ")

	var headlines strings.Builder
	for _, item := range req.Market.News {
		fmt.Fprintf(&headlines, "- [%s] %s\n", item.Source, item.Title)
	}
	if headlines.Len() == 0 {
		headlines.WriteString("(no recent news)\n")
	}

	return fmt.Sprintf(`Analyze the situation and recommend at most one trade.

Current Context:
- Time: %s
- Risk level: %s
- Max trade size (USD): %.2f
- Market sentiment: %s

Portfolio:
%s

Current Prices:
%s

Recent Headlines:
%s
Strategy Performance History:
%s

Constraints:
- allowed trade types: buy, sell, swap
- allowed strategy types: momentum, mean_reversion, breakout, rebalance, hold, custom
- allowed tokens: %s
- trade amount is denominated in the from_token

Respond with pure JSON (no markdown, no commentary):
{
  "should_trade": true|false,
  "confidence": 0.0-1.0,
  "strategy": {"name": "short descriptive name", "type": "momentum|mean_reversion|breakout|rebalance|hold|custom"},
  "trade": {"type": "buy|sell|swap", "from_token": "USDC", "to_token": "WETH", "amount": 0.0},
  "reasoning": ["step 1", "step 2"]
}

Rules:
1. NEVER exceed the max trade size
2. If confidence < 0.6, set should_trade to false
3. Only use tokens from the allowed list
4. Consider news sentiment and diversification`,
		time.Now().Format(time.RFC3339),
		req.Config.RiskLevel,
		req.Config.MaxTradeSize,
		req.Market.Sentiment,
		string(portfolioJSON),
		string(pricesJSON),
		headlines.String(),
		string(historyJSON),
		strings.Join(req.Config.Tokens, ", "),
	)
}

// GetChatSystemPrompt системный промпт для разговорного режима
func GetChatSystemPrompt(contextInfo string) string {
	return fmt.Sprintf(`You are a friendly assistant for a crypto trading copilot bot.

Current context:
%s

Answer questions about prices, the portfolio and autonomous sessions.
Keep replies short, 2-3 sentences. If the user asks to start autonomous trading,
point them to the /auto command.`, contextInfo)
}
