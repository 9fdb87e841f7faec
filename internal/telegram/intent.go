package telegram

import (
	"regexp"
	"strings"
	"time"
)

// IntentType категория намерения в свободном тексте
type IntentType string

const (
	IntentPrice     IntentType = "price"
	IntentPortfolio IntentType = "portfolio"
	IntentTrade     IntentType = "trade"
	IntentAuto      IntentType = "auto_session"
	IntentStop      IntentType = "stop_session"
	IntentStatus    IntentType = "status"
	IntentChat      IntentType = "chat"
)

// Intent распознанное намерение пользователя
type Intent struct {
	Type      IntentType
	Tokens    []string
	Amount    float64
	FromToken string
	ToToken   string
	Duration  time.Duration
}

var knownTokens = []string{
	"WETH", "WBTC", "USDC", "USDT", "SOL", "LINK", "DAI",
	"ETH", "BTC", "BITCOIN", "SOLANA",
}

var numberPattern = regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)?`)

// DetectIntent классифицирует свободный текст по ключевым словам.
// Порядок проверок важен: остановка раньше запуска, сделка раньше цены.
func DetectIntent(text string) Intent {
	lower := strings.ToLower(text)

	intent := Intent{Type: IntentChat, Tokens: ExtractTokens(text)}

	switch {
	case containsAny(lower, "останови", "прекрати", "stop trading", "stop session", "stop the session"):
		intent.Type = IntentStop

	case containsAny(lower, "поторгуй", "trade for", "запусти сессию", "start session", "autonomous", "автономн"):
		intent.Type = IntentAuto
		if d, _, err := findDuration(lower); err == nil {
			intent.Duration = d
		}

	case containsAny(lower, "купи", "продай", "обменяй", "buy", "sell", "swap"):
		intent.Type = IntentTrade
		intent.Amount = firstNumber(lower)
		if len(intent.Tokens) >= 2 {
			intent.FromToken = intent.Tokens[0]
			intent.ToToken = intent.Tokens[1]
		}

	case containsAny(lower, "как дела", "что происходит", "how is it going", "session status", "статус сессии"):
		intent.Type = IntentStatus

	case containsAny(lower, "портфель", "баланс", "portfolio", "balance", "holdings"):
		intent.Type = IntentPortfolio

	case containsAny(lower, "цена", "сколько стоит", "price", "how much is"):
		intent.Type = IntentPrice
	}

	return intent
}

// ExtractTokens находит известные тикеры в тексте, сохраняя порядок
func ExtractTokens(text string) []string {
	upper := strings.ToUpper(text)

	type hit struct {
		pos   int
		token string
	}
	var hits []hit
	seen := make(map[string]bool)

	for _, ticker := range knownTokens {
		pos := indexWord(upper, ticker)
		if pos < 0 {
			continue
		}
		canonical := normalizeToken(ticker)
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		hits = append(hits, hit{pos: pos, token: canonical})
	}

	// Сортировка по позиции в тексте, чтобы "swap USDC to SOL" дал [USDC, SOL]
	for i := 0; i < len(hits); i++ {
		for j := i + 1; j < len(hits); j++ {
			if hits[j].pos < hits[i].pos {
				hits[i], hits[j] = hits[j], hits[i]
			}
		}
	}

	tokens := make([]string, 0, len(hits))
	for _, h := range hits {
		tokens = append(tokens, h.token)
	}
	return tokens
}

// indexWord ищет тикер как отдельное слово, чтобы SOL не находился внутри SOLANA
func indexWord(text, word string) int {
	start := 0
	for {
		pos := strings.Index(text[start:], word)
		if pos < 0 {
			return -1
		}
		pos += start

		beforeOK := pos == 0 || !isAlnum(text[pos-1])
		end := pos + len(word)
		afterOK := end == len(text) || !isAlnum(text[end])
		if beforeOK && afterOK {
			return pos
		}
		start = pos + 1
	}
}

func isAlnum(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func firstNumber(text string) float64 {
	if m := numberPattern.FindString(text); m != "" {
		return parseFloat(m)
	}
	return 0
}

// findDuration ищет длительность в любом месте текста
func findDuration(text string) (time.Duration, int, error) {
	words := strings.Fields(text)
	for i := range words {
		if d, consumed, err := ParseSessionDuration(strings.Join(words[i:], " ")); err == nil {
			return d, consumed, nil
		}
	}
	return ParseSessionDuration(text)
}
