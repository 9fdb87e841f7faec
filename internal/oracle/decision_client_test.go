package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillm/trading-copilot/internal/domain"
	"github.com/kirillm/trading-copilot/pkg/utils"
)

type fakeChat struct {
	response string
	err      error
	calls    int
}

func (f *fakeChat) Chat(ctx context.Context, messages []Message) (string, error) {
	f.calls++
	return f.response, f.err
}

func testRequest() domain.OracleRequest {
	return domain.OracleRequest{
		Portfolio: domain.PortfolioAnalysis{
			TotalValue: 1000,
			Balances:   []domain.TokenBalance{{Symbol: "USDC", Amount: 1000, USDValue: 1000}},
		},
		Config: domain.SessionConfig{MaxTradeSize: 100, RiskLevel: domain.RiskModerate},
	}
}

const validResponse = `{
	"should_trade": true,
	"confidence": 0.8,
	"strategy": {"name": "usdc momentum entry", "type": "momentum"},
	"trade": {"type": "swap", "from_token": "USDC", "to_token": "SOL", "amount": 50},
	"reasoning": ["bullish sentiment", "portfolio is all stables"]
}`

func TestAsk_ValidResponse(t *testing.T) {
	chat := &fakeChat{response: validResponse}
	dc := NewDecisionClient(chat, utils.NewLogger("error"))

	rec := dc.Ask(context.Background(), testRequest())

	if !rec.ShouldTrade {
		t.Fatal("ShouldTrade = false, want true")
	}
	if rec.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", rec.Confidence)
	}
	if rec.Strategy.Type != domain.StrategyMomentum {
		t.Errorf("Strategy.Type = %v, want momentum", rec.Strategy.Type)
	}
	if rec.Trade.Amount != 50 {
		t.Errorf("Trade.Amount = %v, want 50", rec.Trade.Amount)
	}
	if chat.calls != 1 {
		t.Errorf("chat calls = %d, want 1", chat.calls)
	}
}

func TestAsk_FencedResponse(t *testing.T) {
	chat := &fakeChat{response: "Here is my analysis:\n```json\n" + validResponse + "\n```"}
	dc := NewDecisionClient(chat, utils.NewLogger("error"))

	rec := dc.Ask(context.Background(), testRequest())

	if !rec.ShouldTrade {
		t.Fatal("ShouldTrade = false, want true for fenced JSON")
	}
}

func TestAsk_MalformedResponse(t *testing.T) {
	chat := &fakeChat{response: "I think you should buy SOL because it looks good"}
	dc := NewDecisionClient(chat, utils.NewLogger("error"))

	rec := dc.Ask(context.Background(), testRequest())

	if rec.ShouldTrade {
		t.Fatal("ShouldTrade = true, want hold on malformed response")
	}
	if rec.Strategy.Type != domain.StrategyHold {
		t.Errorf("Strategy.Type = %v, want hold", rec.Strategy.Type)
	}
	if rec.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0 for system-error hold", rec.Confidence)
	}
}

func TestAsk_ChatError(t *testing.T) {
	chat := &fakeChat{err: errors.New("connection refused")}
	dc := NewDecisionClient(chat, utils.NewLogger("error"))

	rec := dc.Ask(context.Background(), testRequest())

	if rec.ShouldTrade {
		t.Fatal("ShouldTrade = true, want hold on chat error")
	}
	if len(rec.Reasoning) == 0 {
		t.Fatal("Reasoning is empty, want error explanation")
	}
}

func TestAsk_EmptyPortfolioFastPath(t *testing.T) {
	chat := &fakeChat{response: validResponse}
	dc := NewDecisionClient(chat, utils.NewLogger("error"))

	req := testRequest()
	req.Portfolio = domain.PortfolioAnalysis{}

	rec := dc.Ask(context.Background(), req)

	if rec.ShouldTrade {
		t.Fatal("ShouldTrade = true, want hold for empty portfolio")
	}
	if chat.calls != 0 {
		t.Errorf("chat calls = %d, want 0 (fast path should skip LLM)", chat.calls)
	}
	if rec.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0 for deliberate hold", rec.Confidence)
	}
}

func TestAsk_Normalization(t *testing.T) {
	tests := []struct {
		name     string
		response string
		check    func(t *testing.T, rec domain.Recommendation)
	}{
		{
			"confidence clamped high",
			`{"should_trade":false,"confidence":7.5,"strategy":{"name":"x","type":"hold"},"trade":{},"reasoning":[]}`,
			func(t *testing.T, rec domain.Recommendation) {
				if rec.Confidence != 1 {
					t.Errorf("Confidence = %v, want 1", rec.Confidence)
				}
			},
		},
		{
			"confidence clamped low",
			`{"should_trade":false,"confidence":-3,"strategy":{"name":"x","type":"hold"},"trade":{},"reasoning":[]}`,
			func(t *testing.T, rec domain.Recommendation) {
				if rec.Confidence != 0 {
					t.Errorf("Confidence = %v, want 0", rec.Confidence)
				}
			},
		},
		{
			"unknown strategy becomes custom",
			`{"should_trade":false,"confidence":0.5,"strategy":{"name":"x","type":"quantum arbitrage"},"trade":{},"reasoning":[]}`,
			func(t *testing.T, rec domain.Recommendation) {
				if rec.Strategy.Type != domain.StrategyCustom {
					t.Errorf("Strategy.Type = %v, want custom", rec.Strategy.Type)
				}
			},
		},
		{
			"strategy type case insensitive",
			`{"should_trade":false,"confidence":0.5,"strategy":{"name":"x","type":"MOMENTUM"},"trade":{},"reasoning":[]}`,
			func(t *testing.T, rec domain.Recommendation) {
				if rec.Strategy.Type != domain.StrategyMomentum {
					t.Errorf("Strategy.Type = %v, want momentum", rec.Strategy.Type)
				}
			},
		},
		{
			"unknown trade type downgrades to hold",
			`{"should_trade":true,"confidence":0.9,"strategy":{"name":"x","type":"momentum"},"trade":{"type":"short","from_token":"USDC","to_token":"SOL","amount":10},"reasoning":[]}`,
			func(t *testing.T, rec domain.Recommendation) {
				if rec.ShouldTrade {
					t.Error("ShouldTrade = true, want downgrade for unknown trade type")
				}
				if len(rec.Reasoning) == 0 {
					t.Error("Reasoning should explain the downgrade")
				}
			},
		},
		{
			"negative amount zeroed",
			`{"should_trade":false,"confidence":0.5,"strategy":{"name":"x","type":"hold"},"trade":{"amount":-10},"reasoning":[]}`,
			func(t *testing.T, rec domain.Recommendation) {
				if rec.Trade.Amount != 0 {
					t.Errorf("Trade.Amount = %v, want 0", rec.Trade.Amount)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{response: tt.response}
			dc := NewDecisionClient(chat, utils.NewLogger("error"))
			rec := dc.Ask(context.Background(), testRequest())
			tt.check(t, rec)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"with prose", "Sure!\n```json\n{\"a\":1}\n```\nHope this helps.", `{"a":1}`},
		{"unclosed fence", "```json\n{\"a\":1}", "```json\n{\"a\":1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.input); got != tt.want {
				t.Errorf("extractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
