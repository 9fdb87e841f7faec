package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kirillm/trading-copilot/internal/domain"
)

// Profile профиль риск-лимитов для одного уровня риска
type Profile struct {
	MaxTradeUSD     float64 `yaml:"max_trade_usd"`
	MaxBalanceShare float64 `yaml:"max_balance_share"` // доля доступного баланса, выше — предупреждение
}

// ValidationResult результат проверки сделки
type ValidationResult struct {
	Approved  bool
	Reason    string
	Warnings  []string
	CheckedAt time.Time
}

// Validator гейткипер сделок перед исполнением. Чистая проверка, без side effects.
type Validator struct {
	profiles map[string]Profile
}

// defaultProfiles используются когда YAML с профилями недоступен
var defaultProfiles = map[string]Profile{
	domain.RiskConservative: {MaxTradeUSD: 100, MaxBalanceShare: 0.25},
	domain.RiskModerate:     {MaxTradeUSD: 500, MaxBalanceShare: 0.5},
	domain.RiskAggressive:   {MaxTradeUSD: 2000, MaxBalanceShare: 0.75},
}

// NewValidator создает валидатор с профилями из YAML файла.
// Отсутствующий файл не является ошибкой: используются встроенные профили.
func NewValidator(profilePath string) (*Validator, error) {
	profiles, err := loadProfiles(profilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Validator{profiles: defaultProfiles}, nil
		}
		return nil, fmt.Errorf("failed to load risk profiles: %w", err)
	}

	return &Validator{profiles: profiles}, nil
}

// loadProfiles загружает риск-профили из YAML
func loadProfiles(path string) (map[string]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		RiskProfiles map[string]Profile `yaml:"risk_profiles"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if len(config.RiskProfiles) == 0 {
		return nil, fmt.Errorf("no risk profiles defined in %s", path)
	}

	return config.RiskProfiles, nil
}

// Validate проверяет сделку против текущего снимка балансов.
// Отклоняет: некорректные параметры, неположительную сумму, недостаточный баланс.
// Предупреждает (не блокируя): сумма выше половины доступного баланса (всегда),
// выше доли риск-профиля или выше его USD-лимита.
func (v *Validator) Validate(trade domain.TradeParams, balances []domain.TokenBalance, riskLevel string) *ValidationResult {
	result := &ValidationResult{
		Approved:  true,
		CheckedAt: time.Now(),
	}

	if trade.FromToken == "" || trade.ToToken == "" {
		result.Approved = false
		result.Reason = fmt.Sprintf("%v: from_token and to_token are required", domain.ErrInvalidTrade)
		return result
	}

	if trade.FromToken == trade.ToToken {
		result.Approved = false
		result.Reason = fmt.Sprintf("%v: from_token and to_token must differ", domain.ErrInvalidTrade)
		return result
	}

	if trade.Amount <= 0 {
		result.Approved = false
		result.Reason = fmt.Sprintf("%v: amount must be positive, got %f", domain.ErrInvalidTrade, trade.Amount)
		return result
	}

	available := totalAvailable(balances, trade.FromToken)
	if available < trade.Amount {
		result.Approved = false
		result.Reason = fmt.Sprintf("%v: have %.6f %s, need %.6f",
			domain.ErrInsufficientBalance, available, trade.FromToken, trade.Amount)
		return result
	}

	profile := v.profile(riskLevel)

	// Фиксированный порог: больше половины доступного баланса — всегда предупреждение,
	// независимо от уровня риска
	if trade.Amount > available*0.5 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("trade uses %.0f%% of available %s balance", trade.Amount/available*100, trade.FromToken))
	}

	// Профильный порог доли баланса, когда он отличается от фиксированного
	if share := profile.MaxBalanceShare; share > 0 && share != 0.5 && trade.Amount > available*share {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("trade exceeds %s profile share limit (%.0f%% of balance)", riskLevel, share*100))
	}

	if profile.MaxTradeUSD > 0 {
		usdEstimate := usdValue(balances, trade.FromToken, trade.Amount)
		if usdEstimate > profile.MaxTradeUSD {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("estimated trade size $%.2f exceeds %s profile cap $%.2f",
					usdEstimate, riskLevel, profile.MaxTradeUSD))
		}
	}

	return result
}

// profile возвращает профиль уровня риска, по умолчанию moderate
func (v *Validator) profile(riskLevel string) Profile {
	if p, ok := v.profiles[riskLevel]; ok {
		return p
	}
	return v.profiles[domain.RiskModerate]
}

// totalAvailable суммарный баланс токена по всем сетям
func totalAvailable(balances []domain.TokenBalance, symbol string) float64 {
	var total float64
	for _, bal := range balances {
		if bal.Symbol == symbol {
			total += bal.Amount
		}
	}
	return total
}

// usdValue грубая USD-оценка суммы по пропорции стоимости баланса
func usdValue(balances []domain.TokenBalance, symbol string, amount float64) float64 {
	var totalAmount, totalUSD float64
	for _, bal := range balances {
		if bal.Symbol == symbol {
			totalAmount += bal.Amount
			totalUSD += bal.USDValue
		}
	}
	if totalAmount <= 0 {
		return 0
	}
	return amount / totalAmount * totalUSD
}
