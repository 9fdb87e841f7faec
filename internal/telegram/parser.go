package telegram

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kirillm/trading-copilot/internal/domain"
)

// CommandArgs распарсенные аргументы команды
type CommandArgs struct {
	Command   string
	Duration  time.Duration
	Tokens    []string
	RiskLevel string
	Symbol    string
	Amount    float64
	FromToken string
	ToToken   string
	Limit     int
	Action    string
	Raw       []string
}

// ParseCommand парсит команду и аргументы
func ParseCommand(text string) (*CommandArgs, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil, fmt.Errorf("not a command")
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	cmd := normalizeCommand(strings.TrimPrefix(parts[0], "/"))
	args := &CommandArgs{
		Command: cmd,
		Raw:     parts[1:],
	}

	switch cmd {
	case "start", "help", "portfolio", "stop", "status", "sessions", "strategies":
		return args, nil

	case "price":
		// /price SOL
		if len(parts) < 2 {
			return nil, fmt.Errorf("usage: /price SYMBOL")
		}
		args.Symbol = normalizeToken(parts[1])
		return args, nil

	case "auto":
		// /auto <DURATION> [TOKENS] [RISK]
		// Примеры: /auto 2h, /auto 1 day SOL,WETH aggressive
		if len(parts) < 2 {
			return nil, fmt.Errorf("usage: /auto <DURATION> [TOKENS] [RISK]\nпример: /auto 2h SOL,WETH moderate")
		}

		rest := parts[1:]
		duration, consumed, err := ParseSessionDuration(strings.Join(rest, " "))
		if err != nil {
			return nil, err
		}
		args.Duration = duration
		rest = rest[consumed:]

		for _, p := range rest {
			if risk := normalizeRisk(p); risk != "" {
				args.RiskLevel = risk
				continue
			}
			for _, t := range strings.Split(p, ",") {
				if t = strings.TrimSpace(t); t != "" {
					args.Tokens = append(args.Tokens, normalizeToken(t))
				}
			}
		}
		return args, nil

	case "trade":
		// /trade <AMOUNT> <FROM> <TO>
		if len(parts) < 4 {
			return nil, fmt.Errorf("usage: /trade <AMOUNT> <FROM> <TO>\nпример: /trade 10 USDC SOL")
		}
		args.Amount = parseFloat(parts[1])
		if args.Amount <= 0 {
			return nil, fmt.Errorf("amount must be positive")
		}
		args.FromToken = normalizeToken(parts[2])
		args.ToToken = normalizeToken(parts[3])
		return args, nil

	case "history":
		// /history [N]
		args.Limit = 10
		if len(parts) >= 2 {
			if n, err := strconv.Atoi(parts[1]); err == nil && n > 0 {
				args.Limit = n
			}
		}
		return args, nil

	case "killswitch":
		// /killswitch [on|off]
		args.Action = "status"
		if len(parts) >= 2 {
			args.Action = normalizeAction(parts[1])
			if args.Action != "on" && args.Action != "off" {
				return nil, fmt.Errorf("usage: /killswitch [on|off]")
			}
		}
		return args, nil

	default:
		return nil, fmt.Errorf("unknown command: %s", cmd)
	}
}

var durationUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "second": time.Second, "seconds": time.Second,
	"с": time.Second, "сек": time.Second, "секунд": time.Second, "секунды": time.Second,
	"m": time.Minute, "min": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"м": time.Minute, "мин": time.Minute, "минут": time.Minute, "минуты": time.Minute, "минута": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"ч": time.Hour, "час": time.Hour, "часа": time.Hour, "часов": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"д": 24 * time.Hour, "день": 24 * time.Hour, "дня": 24 * time.Hour, "дней": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
	"неделя": 7 * 24 * time.Hour, "недели": 7 * 24 * time.Hour, "недель": 7 * 24 * time.Hour,
}

var compactDuration = regexp.MustCompile(`^([0-9]+(?:[.,][0-9]+)?)([a-zа-я]+)$`)

// ParseSessionDuration разбирает длительность из свободного текста.
// Понимает компактные формы ("30m", "2h", "1.5d") и раздельные ("2 hours", "1 день").
// Возвращает длительность и число использованных слов.
func ParseSessionDuration(text string) (time.Duration, int, error) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0, 0, fmt.Errorf("duration is required")
	}

	// Компактная форма: число и единица слитно
	if m := compactDuration.FindStringSubmatch(words[0]); m != nil {
		unit, ok := durationUnits[m[2]]
		if !ok {
			return 0, 0, fmt.Errorf("unknown duration unit: %s", m[2])
		}
		value := parseFloat(m[1])
		if value <= 0 {
			return 0, 0, fmt.Errorf("duration must be positive")
		}
		return time.Duration(value * float64(unit)), 1, nil
	}

	// Раздельная форма: "2 hours", "1 день"
	if len(words) >= 2 {
		value := parseFloat(words[0])
		if value > 0 {
			if unit, ok := durationUnits[words[1]]; ok {
				return time.Duration(value * float64(unit)), 2, nil
			}
		}
	}

	return 0, 0, fmt.Errorf("cannot parse duration from %q (examples: 30m, 2h, 1 day)", words[0])
}

// normalizeToken приводит тикер токена к каноническому виду
func normalizeToken(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	aliases := map[string]string{
		"ETH":     "WETH",
		"BTC":     "WBTC",
		"BITCOIN": "WBTC",
		"SOLANA":  "SOL",
	}
	if canonical, ok := aliases[symbol]; ok {
		return canonical
	}
	return symbol
}

// normalizeCommand нормализует команду (поддержка русских алиасов)
func normalizeCommand(cmd string) string {
	cmd = strings.ToLower(strings.TrimSpace(cmd))

	ruToEn := map[string]string{
		"статус":    "status",
		"портфель":  "portfolio",
		"цена":      "price",
		"помощь":    "help",
		"история":   "history",
		"авто":      "auto",
		"стоп":      "stop",
		"сделка":    "trade",
		"стратегии": "strategies",
	}
	if en, ok := ruToEn[cmd]; ok {
		return en
	}
	return cmd
}

// normalizeAction нормализует on/off
func normalizeAction(action string) string {
	action = strings.ToLower(strings.TrimSpace(action))

	actionMap := map[string]string{
		"вкл":       "on",
		"включить":  "on",
		"yes":       "on",
		"выкл":      "off",
		"выключить": "off",
		"no":        "off",
	}
	if normalized, ok := actionMap[action]; ok {
		return normalized
	}
	return action
}

// normalizeRisk распознает уровень риска в свободном тексте
func normalizeRisk(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case domain.RiskConservative, "консервативный", "safe", "low":
		return domain.RiskConservative
	case domain.RiskModerate, "умеренный", "medium":
		return domain.RiskModerate
	case domain.RiskAggressive, "агрессивный", "high":
		return domain.RiskAggressive
	}
	return ""
}

// parseFloat безопасно парсит float с поддержкой запятой
func parseFloat(s string) float64 {
	s = strings.TrimSuffix(s, "%")
	s = strings.Replace(s, ",", ".", 1)
	val, _ := strconv.ParseFloat(s, 64)
	return val
}
