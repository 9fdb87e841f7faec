package news

import (
	"strings"

	"github.com/kirillm/trading-copilot/internal/domain"
)

// Classifier чистая функция: заголовки -> метка сентимента.
// Интерфейс позволяет заменить keyword-счетчик на настоящий классификатор
// без изменений в контроллере сессий.
type Classifier func(headlines []string) string

// sentimentMargin минимальный перевес ключевых слов для направленной метки
const sentimentMargin = 3

var positiveKeywords = []string{
	"surge", "rally", "bullish", "gain", "soar", "jump", "record high",
	"adoption", "approval", "breakthrough", "partnership", "upgrade", "inflow",
}

var negativeKeywords = []string{
	"crash", "plunge", "bearish", "drop", "fall", "dump", "sell-off",
	"hack", "exploit", "ban", "lawsuit", "fraud", "liquidation", "outflow",
}

// KeywordSentiment наивный классификатор: считает вхождения позитивных и
// негативных ключевых слов в заголовках. Направление объявляется только
// при перевесе не менее sentimentMargin, иначе neutral.
func KeywordSentiment(headlines []string) string {
	var positive, negative int

	for _, headline := range headlines {
		lower := strings.ToLower(headline)
		for _, kw := range positiveKeywords {
			if strings.Contains(lower, kw) {
				positive++
			}
		}
		for _, kw := range negativeKeywords {
			if strings.Contains(lower, kw) {
				negative++
			}
		}
	}

	switch {
	case positive-negative >= sentimentMargin:
		return domain.SentimentBullish
	case negative-positive >= sentimentMargin:
		return domain.SentimentBearish
	default:
		return domain.SentimentNeutral
	}
}
