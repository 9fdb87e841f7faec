package news

import (
	"testing"

	"github.com/kirillm/trading-copilot/internal/domain"
)

func TestKeywordSentiment(t *testing.T) {
	tests := []struct {
		name      string
		headlines []string
		want      string
	}{
		{
			"empty is neutral",
			nil,
			domain.SentimentNeutral,
		},
		{
			"no keywords is neutral",
			[]string{"Ethereum Foundation publishes quarterly report"},
			domain.SentimentNeutral,
		},
		{
			"clear bullish",
			[]string{
				"Bitcoin surge continues as ETF inflow hits record",
				"Solana rally gains momentum after major partnership",
				"Institutional adoption accelerates",
			},
			domain.SentimentBullish,
		},
		{
			"clear bearish",
			[]string{
				"Exchange hack triggers market crash",
				"Token plunge deepens amid liquidation cascade",
				"Regulator announces ban on stablecoin issuer",
			},
			domain.SentimentBearish,
		},
		{
			"small margin stays neutral",
			[]string{"Bitcoin surge after lawsuit news"},
			domain.SentimentNeutral,
		},
		{
			"mixed signals stay neutral",
			[]string{
				"Market rally meets sell-off pressure",
				"Gains erased as prices drop, then jump again after approval, despite hack fears",
			},
			domain.SentimentNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeywordSentiment(tt.headlines); got != tt.want {
				t.Errorf("KeywordSentiment() = %v, want %v", got, tt.want)
			}
		})
	}
}
