package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kirillm/trading-copilot/internal/domain"
	"github.com/kirillm/trading-copilot/internal/executor"
	"github.com/kirillm/trading-copilot/internal/market"
	"github.com/kirillm/trading-copilot/pkg/utils"
)

// SessionManager управление автономными сессиями
type SessionManager interface {
	StartSession(ctx context.Context, userID int64, cfg domain.SessionConfig) (*domain.Session, error)
	StopForUser(userID int64) (*domain.Session, error)
	ActiveForUser(userID int64) (*domain.Session, bool)
	ListActive() []*domain.Session
}

// MarketGateway доступ к ценам и портфелю
type MarketGateway interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
	GetPortfolio(ctx context.Context) (*domain.PortfolioSnapshot, error)
}

// TradeExecutor исполнение ручных сделок через валидатор
type TradeExecutor interface {
	Execute(ctx context.Context, trade domain.TradeParams, balances []domain.TokenBalance, riskLevel, reason string) (*domain.TradeRecord, []string)
}

// ChatAssistant диалоговый AI для свободных сообщений
type ChatAssistant interface {
	Reply(ctx context.Context, userMessage, contextInfo string) (string, error)
}

// HistoryStore чтение истории для команд /history и /strategies
type HistoryStore interface {
	GetRecentTrades(sessionID string, limit int) ([]domain.TradeRecord, error)
	GetStrategyPerformance(limit int) ([]domain.StrategyPerformance, error)
}

// Bot телеграм-интерфейс ассистента
type Bot struct {
	api        *tgbotapi.BotAPI
	logger     *utils.Logger
	auth       *AuthManager
	formatter  *Formatter
	sessions   SessionManager
	market     MarketGateway
	executor   TradeExecutor
	assistant  ChatAssistant
	store      HistoryStore // может быть nil
	killSwitch *executor.KillSwitch

	defaultRisk   string
	maxTradeSize  float64
	cycleInterval time.Duration
	testingMode   bool
}

// NewBot создает и авторизует бота
func NewBot(
	token string,
	auth *AuthManager,
	sessions SessionManager,
	gw MarketGateway,
	trader TradeExecutor,
	assistant ChatAssistant,
	store HistoryStore,
	killSwitch *executor.KillSwitch,
	defaultRisk string,
	maxTradeSize float64,
	cycleInterval time.Duration,
	testingMode bool,
	logger *utils.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("🤖 Telegram bot authorized: @%s", api.Self.UserName)

	return &Bot{
		api:          api,
		logger:       logger,
		auth:         auth,
		formatter:    NewFormatter(),
		sessions:     sessions,
		market:       gw,
		executor:     trader,
		assistant:    assistant,
		store:        store,
		killSwitch:    killSwitch,
		defaultRisk:   defaultRisk,
		maxTradeSize:  maxTradeSize,
		cycleInterval: cycleInterval,
		testingMode:   testingMode,
	}, nil
}

// Start запускает обработку входящих сообщений (блокирует)
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		userID := update.Message.From.ID
		chatID := update.Message.Chat.ID

		if !b.auth.IsAllowed(userID) {
			b.logger.Warn("⚠️ Попытка доступа от неавторизованного пользователя %d", userID)
			continue
		}
		if err := b.auth.CheckRateLimit(userID, 2); err != nil {
			b.sendTo(chatID, b.formatter.FormatError(err))
			continue
		}

		go b.handleMessage(userID, chatID, update.Message)
	}
}

// Notify реализует session.Notifier: доставляет отчеты о завершении сессий.
// В личных чатах Telegram userID совпадает с chatID.
func (b *Bot) Notify(userID int64, text string) {
	b.sendTo(userID, text)
}

func (b *Bot) handleMessage(userID, chatID int64, message *tgbotapi.Message) {
	b.logger.Debug("Сообщение от %d: %s", userID, message.Text)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	if strings.HasPrefix(strings.TrimSpace(message.Text), "/") {
		b.handleCommand(ctx, userID, chatID, message.Text)
		return
	}

	b.handleText(ctx, userID, chatID, message.Text)
}

func (b *Bot) handleCommand(ctx context.Context, userID, chatID int64, text string) {
	args, err := ParseCommand(text)
	if err != nil {
		b.sendTo(chatID, b.formatter.FormatError(err))
		return
	}

	switch args.Command {
	case "start", "help":
		b.sendTo(chatID, helpText)

	case "auto":
		b.handleAuto(ctx, userID, chatID, args)

	case "stop":
		b.handleStop(userID, chatID)

	case "status":
		b.handleStatus(userID, chatID)

	case "sessions":
		if err := b.auth.RequireAdmin(userID); err != nil {
			b.sendTo(chatID, b.formatter.FormatError(err))
			return
		}
		b.sendTo(chatID, b.formatter.FormatSessions(b.sessions.ListActive()))

	case "price":
		b.handlePrice(ctx, chatID, args.Symbol)

	case "portfolio":
		b.handlePortfolio(ctx, chatID)

	case "trade":
		b.handleTrade(ctx, chatID, domain.TradeParams{
			Type:      domain.TradeSwap,
			FromToken: args.FromToken,
			ToToken:   args.ToToken,
			Amount:    args.Amount,
		})

	case "history":
		b.handleHistory(userID, chatID, args.Limit)

	case "strategies":
		b.handleStrategies(chatID)

	case "killswitch":
		if err := b.auth.RequireAdmin(userID); err != nil {
			b.sendTo(chatID, b.formatter.FormatError(err))
			return
		}
		b.handleKillSwitch(chatID, args.Action)
	}
}

// handleText маршрутизирует свободный текст по намерению
func (b *Bot) handleText(ctx context.Context, userID, chatID int64, text string) {
	intent := DetectIntent(text)

	switch intent.Type {
	case IntentPrice:
		symbol := "WBTC"
		if len(intent.Tokens) > 0 {
			symbol = intent.Tokens[0]
		}
		b.handlePrice(ctx, chatID, symbol)

	case IntentPortfolio:
		b.handlePortfolio(ctx, chatID)

	case IntentTrade:
		if intent.Amount <= 0 || intent.FromToken == "" || intent.ToToken == "" {
			b.sendTo(chatID, "Уточните сделку: сумма, из какого токена и в какой. Пример: обменяй 10 USDC на SOL")
			return
		}
		b.handleTrade(ctx, chatID, domain.TradeParams{
			Type:      domain.TradeSwap,
			FromToken: intent.FromToken,
			ToToken:   intent.ToToken,
			Amount:    intent.Amount,
		})

	case IntentAuto:
		if intent.Duration <= 0 {
			b.sendTo(chatID, "На какое время запустить сессию? Пример: поторгуй 2 часа")
			return
		}
		b.handleAuto(ctx, userID, chatID, &CommandArgs{
			Duration: intent.Duration,
			Tokens:   intent.Tokens,
		})

	case IntentStop:
		b.handleStop(userID, chatID)

	case IntentStatus:
		b.handleStatus(userID, chatID)

	default:
		b.handleChat(ctx, userID, chatID, text)
	}
}

func (b *Bot) handleAuto(ctx context.Context, userID, chatID int64, args *CommandArgs) {
	cfg := domain.SessionConfig{
		Duration:      args.Duration,
		Tokens:        args.Tokens,
		RiskLevel:     args.RiskLevel,
		MaxTradeSize:  b.maxTradeSize,
		CycleInterval: b.cycleInterval,
		TestingMode:   b.testingMode,
	}
	if cfg.RiskLevel == "" {
		cfg.RiskLevel = b.defaultRisk
	}

	session, err := b.sessions.StartSession(ctx, userID, cfg)
	if err != nil {
		b.sendTo(chatID, b.formatter.FormatError(err))
		return
	}

	b.sendTo(chatID, fmt.Sprintf(
		"🚀 Автономная сессия запущена!\n\nID: %s\nДлительность: %v\nТокены: %s\nРиск: %s\n\nОстановить: /stop, статус: /status",
		session.ID, session.Config.Duration,
		strings.Join(session.Config.Tokens, ", "), session.Config.RiskLevel,
	))
}

func (b *Bot) handleStop(userID, chatID int64) {
	session, err := b.sessions.StopForUser(userID)
	if err != nil {
		if err == domain.ErrSessionNotFound {
			b.sendTo(chatID, "У вас нет активной сессии.")
			return
		}
		b.sendTo(chatID, b.formatter.FormatError(err))
		return
	}
	b.sendTo(chatID, fmt.Sprintf("🛑 Останавливаю сессию %s, итоговый отчет придет после завершения цикла.", session.ID))
}

func (b *Bot) handleStatus(userID, chatID int64) {
	session, ok := b.sessions.ActiveForUser(userID)
	if !ok {
		b.sendTo(chatID, "У вас нет активной сессии. Запустить: /auto <длительность>")
		return
	}
	b.sendTo(chatID, formatSessionStatus(session))
}

func (b *Bot) handlePrice(ctx context.Context, chatID int64, symbol string) {
	if symbol == "" {
		b.sendTo(chatID, "Укажите токен. Пример: /price SOL")
		return
	}

	price, err := b.market.GetPrice(ctx, symbol)
	if err != nil {
		b.sendTo(chatID, b.formatter.FormatError(err))
		return
	}
	b.sendTo(chatID, b.formatter.FormatPrice(symbol, price))
}

func (b *Bot) handlePortfolio(ctx context.Context, chatID int64) {
	snapshot, err := b.market.GetPortfolio(ctx)
	if err != nil {
		b.sendTo(chatID, b.formatter.FormatError(err))
		return
	}
	analysis := market.AnalyzePortfolio(snapshot, nil)
	b.sendTo(chatID, b.formatter.FormatPortfolio(analysis))
}

func (b *Bot) handleTrade(ctx context.Context, chatID int64, trade domain.TradeParams) {
	snapshot, err := b.market.GetPortfolio(ctx)
	if err != nil {
		b.sendTo(chatID, b.formatter.FormatError(err))
		return
	}

	b.sendTo(chatID, fmt.Sprintf("🔄 Выполняю: %.4f %s → %s...", trade.Amount, trade.FromToken, trade.ToToken))

	record, warnings := b.executor.Execute(ctx, trade, snapshot.Balances, b.defaultRisk, "manual trade via telegram")
	b.sendTo(chatID, b.formatter.FormatTrade(record, warnings))
}

func (b *Bot) handleHistory(userID, chatID int64, limit int) {
	session, ok := b.sessions.ActiveForUser(userID)
	if !ok {
		b.sendTo(chatID, "У вас нет активной сессии, история недоступна.")
		return
	}

	if b.store != nil {
		if trades, err := b.store.GetRecentTrades(session.ID, limit); err == nil {
			b.sendTo(chatID, b.formatter.FormatHistory(trades))
			return
		}
	}

	// Fallback на историю в памяти
	trades := session.Trades
	if len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	b.sendTo(chatID, b.formatter.FormatHistory(trades))
}

func (b *Bot) handleStrategies(chatID int64) {
	if b.store == nil {
		b.sendTo(chatID, "Статистика стратегий требует подключения базы данных.")
		return
	}

	stats, err := b.store.GetStrategyPerformance(10)
	if err != nil {
		b.sendTo(chatID, b.formatter.FormatError(err))
		return
	}
	b.sendTo(chatID, b.formatter.FormatStrategies(stats))
}

func (b *Bot) handleKillSwitch(chatID int64, action string) {
	switch action {
	case "on":
		b.killSwitch.Activate("manual activation via telegram")
		b.sendTo(chatID, "🚨 Kill switch активирован, все сделки заблокированы.")
	case "off":
		b.killSwitch.Deactivate()
		b.sendTo(chatID, "✅ Kill switch деактивирован, торговля разрешена.")
	default:
		active, reason, at := b.killSwitch.Status()
		if active {
			b.sendTo(chatID, fmt.Sprintf("🚨 Kill switch активен с %s: %s", at.Format("15:04:05"), reason))
		} else {
			b.sendTo(chatID, "✅ Kill switch неактивен, торговля разрешена.")
		}
	}
}

// handleChat отвечает на свободный текст через AI с контекстом текущего состояния
func (b *Bot) handleChat(ctx context.Context, userID, chatID int64, text string) {
	var contextInfo strings.Builder

	if session, ok := b.sessions.ActiveForUser(userID); ok {
		contextInfo.WriteString(formatSessionStatus(session))
		contextInfo.WriteString("\n")
	}
	if snapshot, err := b.market.GetPortfolio(ctx); err == nil {
		analysis := market.AnalyzePortfolio(snapshot, nil)
		contextInfo.WriteString(b.formatter.FormatPortfolio(analysis))
	}

	reply, err := b.assistant.Reply(ctx, text, contextInfo.String())
	if err != nil {
		b.logger.Error("❌ Ошибка AI ассистента: %v", err)
		b.sendTo(chatID, "Не получилось ответить, попробуйте еще раз или используйте /help.")
		return
	}
	b.sendTo(chatID, reply)
}

// sendTo отправляет сообщение, разбивая длинные на части
func (b *Bot) sendTo(chatID int64, text string) {
	const maxLength = 4096
	for _, part := range splitMessage(text, maxLength) {
		msg := tgbotapi.NewMessage(chatID, part)
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("❌ Не удалось отправить сообщение: %v", err)
		}
	}
}

// splitMessage разбивает длинное сообщение на части по строкам
func splitMessage(text string, maxLength int) []string {
	if len(text) <= maxLength {
		return []string{text}
	}

	var messages []string
	current := ""
	for _, line := range strings.Split(text, "\n") {
		if len(current)+len(line)+1 > maxLength {
			messages = append(messages, current)
			current = line
		} else {
			if current != "" {
				current += "\n"
			}
			current += line
		}
	}
	if current != "" {
		messages = append(messages, current)
	}
	return messages
}

const helpText = `🤖 Торговый AI Ассистент

📊 ИНФОРМАЦИЯ
/price <TOKEN> - Текущая цена токена
/portfolio - Обзор портфеля
/status - Статус активной сессии
/history [N] - Сделки текущей сессии
/strategies - Результативность стратегий

⚡ ТОРГОВЛЯ
/trade <AMOUNT> <FROM> <TO> - Ручная сделка
/auto <DURATION> [TOKENS] [RISK] - Запустить автономную сессию
/stop - Остановить сессию

Примеры:
/auto 2h - сессия на 2 часа
/auto 1 day SOL,WETH aggressive
/trade 10 USDC SOL

🛡️ АДМИН
/sessions - Все активные сессии
/killswitch [on|off] - Аварийная остановка торговли

Просто пишите боту в свободной форме: "сколько стоит SOL",
"поторгуй 2 часа", "обменяй 10 USDC на SOL".`
