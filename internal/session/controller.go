package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillm/trading-copilot/internal/domain"
	"github.com/kirillm/trading-copilot/internal/market"
	"github.com/kirillm/trading-copilot/internal/news"
	"github.com/kirillm/trading-copilot/pkg/utils"
)

// MarketGateway доступ к ценам и портфелю торгового API
type MarketGateway interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
	GetPortfolio(ctx context.Context) (*domain.PortfolioSnapshot, error)
}

// NewsGateway доступ к новостным лентам
type NewsGateway interface {
	FetchNews(ctx context.Context, limit int) ([]domain.NewsItem, error)
}

// Oracle источник торговых рекомендаций. Никогда не возвращает ошибку:
// при любом сбое отдает рекомендацию hold.
type Oracle interface {
	Ask(ctx context.Context, req domain.OracleRequest) domain.Recommendation
}

// TradeExecutor валидирует и исполняет сделку, возвращая запись и предупреждения
type TradeExecutor interface {
	Execute(ctx context.Context, trade domain.TradeParams, balances []domain.TokenBalance, riskLevel, reason string) (*domain.TradeRecord, []string)
}

// Store персистентное хранилище сессий. Все ошибки записи некритичны:
// контроллер логирует их и продолжает работу в памяти.
type Store interface {
	CreateSession(session *domain.Session) error
	UpdateSession(session *domain.Session) error
	SaveTrade(sessionID string, trade *domain.TradeRecord) error
	SaveDecision(sessionID string, decision *domain.DecisionRecord) error
	UpsertStrategyPerformance(name, strategyType string, success bool, pnl float64) error
	GetStrategyPerformance(limit int) ([]domain.StrategyPerformance, error)
}

// Notifier доставляет пользователю итоговый отчет по завершении сессии
type Notifier func(userID int64, text string)

// Controller управляет жизненным циклом автономных торговых сессий
type Controller struct {
	market    MarketGateway
	news      NewsGateway
	classify  news.Classifier
	oracle    Oracle
	executor  TradeExecutor
	store     Store // может быть nil при работе без базы
	registry  *Registry
	notify    Notifier
	logger    *utils.Logger
	newsLimit int
}

// NewController собирает контроллер из зависимостей
func NewController(gw MarketGateway, ng NewsGateway, classify news.Classifier, oracle Oracle, executor TradeExecutor, store Store, notify Notifier, newsLimit int, logger *utils.Logger) *Controller {
	if classify == nil {
		classify = news.KeywordSentiment
	}
	if newsLimit <= 0 {
		newsLimit = 10
	}
	return &Controller{
		market:    gw,
		news:      ng,
		classify:  classify,
		oracle:    oracle,
		executor:  executor,
		store:     store,
		registry:  NewRegistry(),
		notify:    notify,
		logger:    logger,
		newsLimit: newsLimit,
	}
}

// SetNotifier задает доставку итоговых отчетов. Должен вызываться
// на этапе сборки, до запуска первой сессии.
func (c *Controller) SetNotifier(notify Notifier) {
	c.notify = notify
}

// StartSession создает сессию и запускает автономный цикл в отдельной горутине.
// У пользователя может быть только одна активная сессия.
func (c *Controller) StartSession(ctx context.Context, userID int64, cfg domain.SessionConfig) (*domain.Session, error) {
	if existing, ok := c.registry.activeForUser(userID); ok {
		return nil, fmt.Errorf("%w: у вас уже есть активная сессия %s", domain.ErrInvalidTrade, existing.session.ID)
	}

	cfg.Duration = domain.ClampDuration(cfg.Duration)
	if cfg.RiskLevel == "" {
		cfg.RiskLevel = domain.RiskModerate
	}
	if len(cfg.Tokens) == 0 {
		cfg.Tokens = append([]string(nil), domain.DefaultTokenUniverse...)
	}

	now := time.Now()
	session := &domain.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Config:    cfg,
		Status:    domain.SessionActive,
		StartTime: now,
		EndTime:   now.Add(cfg.Duration),
	}

	// Стартовая оценка портфеля. При недоступности API начинаем с нуля,
	// метрики пересчитаются на первом удачном цикле.
	if snapshot, err := c.market.GetPortfolio(ctx); err != nil {
		c.logger.Warn("⚠️ Не удалось оценить портфель на старте сессии %s: %v", session.ID, err)
	} else {
		session.Performance.StartValue = snapshot.TotalValue
		session.Performance.CurrentValue = snapshot.TotalValue
	}

	h := newHandle(session)
	c.registry.add(h)

	if c.store != nil {
		if err := c.store.CreateSession(h.snapshot()); err != nil {
			c.logger.Error("❌ Не удалось сохранить сессию %s: %v", session.ID, err)
		}
	}

	c.logger.Info("🚀 Сессия %s запущена: %v, токены %v, риск %s", session.ID, cfg.Duration, cfg.Tokens, cfg.RiskLevel)

	go c.run(h)

	return h.snapshot(), nil
}

// Stop останавливает сессию по запросу пользователя
func (c *Controller) Stop(sessionID string) (*domain.Session, error) {
	h, ok := c.registry.get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if !h.requestStop(domain.SessionStoppedByUser) {
		return nil, domain.ErrSessionNotActive
	}

	c.logger.Info("🛑 Сессия %s: получен запрос на остановку", sessionID)
	return h.snapshot(), nil
}

// StopForUser останавливает активную сессию пользователя
func (c *Controller) StopForUser(userID int64) (*domain.Session, error) {
	h, ok := c.registry.activeForUser(userID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return c.Stop(h.session.ID)
}

// GetStatus возвращает снимок сессии по идентификатору
func (c *Controller) GetStatus(sessionID string) (*domain.Session, error) {
	h, ok := c.registry.get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return h.snapshot(), nil
}

// ActiveForUser возвращает снимок активной сессии пользователя
func (c *Controller) ActiveForUser(userID int64) (*domain.Session, bool) {
	h, ok := c.registry.activeForUser(userID)
	if !ok {
		return nil, false
	}
	return h.snapshot(), true
}

// ListActive возвращает снимки всех активных сессий
func (c *Controller) ListActive() []*domain.Session {
	return c.registry.listActive()
}

// Wait блокируется до финализации сессии (используется в тестах и shutdown)
func (c *Controller) Wait(sessionID string) {
	if h, ok := c.registry.get(sessionID); ok {
		<-h.done
	}
}

// run основной автономный цикл сессии
func (c *Controller) run(h *handle) {
	defer close(h.done)

	interval := c.cycleInterval(h.session.Config)
	ctx := context.Background()

	for {
		h.mu.Lock()
		status := h.session.Status
		deadline := h.session.EndTime
		h.mu.Unlock()

		if status != domain.SessionActive {
			break
		}
		if time.Now().After(deadline) {
			h.mu.Lock()
			if h.session.Status == domain.SessionActive {
				h.session.Status = domain.SessionCompleted
			}
			h.mu.Unlock()
			break
		}

		if err := c.safeCycle(ctx, h); err != nil {
			c.logger.Error("❌ Сессия %s: цикл завершился ошибкой: %v", h.session.ID, err)
			c.sleep(h, domain.ErrorCooldown)
			continue
		}

		c.sleep(h, interval)
	}

	c.finalize(ctx, h)
}

// sleep ждет интервал либо ранней остановки сессии
func (c *Controller) sleep(h *handle, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-h.stop:
	}
}

func (c *Controller) cycleInterval(cfg domain.SessionConfig) time.Duration {
	if cfg.TestingMode {
		return domain.TestingCycleInterval
	}
	interval := cfg.CycleInterval
	if interval <= 0 {
		interval = domain.DefaultCycleInterval
	}
	if interval < domain.MinCycleInterval {
		interval = domain.MinCycleInterval
	}
	return interval
}

// safeCycle выполняет один цикл, перехватывая паники
func (c *Controller) safeCycle(ctx context.Context, h *handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in cycle: %v", r)
		}
	}()
	return c.cycle(ctx, h)
}

// cycle: сбор данных -> анализ -> решение -> валидация -> исполнение -> запись
func (c *Controller) cycle(ctx context.Context, h *handle) error {
	h.mu.Lock()
	cfg := h.session.Config
	cycleNumber := h.session.CycleCount + 1
	sessionID := h.session.ID
	h.mu.Unlock()

	// 1. Цены: недоступные токены пропускаем
	prices := make(map[string]float64)
	for _, symbol := range cfg.Tokens {
		price, err := c.market.GetPrice(ctx, symbol)
		if err != nil {
			c.logger.Warn("⚠️ Сессия %s: цена %s недоступна: %v", sessionID, symbol, err)
			continue
		}
		prices[symbol] = price
	}

	// 2. Новости: сбой лент не прерывает цикл
	items, err := c.news.FetchNews(ctx, c.newsLimit)
	if err != nil {
		c.logger.Warn("⚠️ Сессия %s: новости недоступны: %v", sessionID, err)
		items = nil
	}
	sentiment := c.classify(news.Headlines(items))

	// 3. Портфель: при сбое работаем с пустым снимком, оракул вернет hold
	snapshot, err := c.market.GetPortfolio(ctx)
	if err != nil {
		c.logger.Warn("⚠️ Сессия %s: портфель недоступен: %v", sessionID, err)
		snapshot = &domain.PortfolioSnapshot{}
	}
	analysis := market.AnalyzePortfolio(snapshot, prices)

	// 4. История стратегий для контекста оракула
	var history []domain.StrategyPerformance
	if c.store != nil {
		history, err = c.store.GetStrategyPerformance(10)
		if err != nil {
			c.logger.Warn("⚠️ Сессия %s: история стратегий недоступна: %v", sessionID, err)
			history = nil
		}
	}

	marketSnap := domain.MarketSnapshot{
		Prices:    prices,
		News:      items,
		Sentiment: sentiment,
	}

	// 5. Решение оракула
	rec := c.oracle.Ask(ctx, domain.OracleRequest{
		Market:    marketSnap,
		Portfolio: analysis,
		History:   history,
		Config:    cfg,
	})

	record := domain.DecisionRecord{
		CycleNumber:    cycleNumber,
		Timestamp:      time.Now(),
		Market:         marketSnap,
		Portfolio:      analysis,
		Recommendation: rec,
	}

	// 6. Исполнение
	if rec.ShouldTrade {
		reason := fmt.Sprintf("session %s cycle %d: %s", sessionID, cycleNumber, rec.Strategy.Name)
		trade, warnings := c.executor.Execute(ctx, rec.Trade, analysis.Balances, cfg.RiskLevel, reason)
		record.Executed = trade
		record.Warnings = warnings
		if trade.Error != "" {
			record.Error = trade.Error
		}
	}

	// 7. Фиксация результатов цикла
	h.mu.Lock()
	h.session.CycleCount = cycleNumber
	h.session.LastCycleAt = record.Timestamp
	h.session.ReasoningLog = append(h.session.ReasoningLog, record)
	if record.Executed != nil {
		h.session.Trades = append(h.session.Trades, *record.Executed)
		h.session.Performance.TotalTrades++
		if record.Executed.Success {
			h.session.Performance.SuccessfulTrades++
		}
	}
	if analysis.TotalValue > 0 {
		h.session.Performance.CurrentValue = analysis.TotalValue
	}
	h.session.Performance.Recompute()
	pnl := h.session.Performance.TotalPnL
	h.mu.Unlock()

	c.persistCycle(h, sessionID, &record, rec, pnl)

	c.logger.Info("📊 Сессия %s: цикл %d, sentiment=%s, trade=%v, confidence=%.2f",
		sessionID, cycleNumber, sentiment, rec.ShouldTrade, rec.Confidence)

	return nil
}

// persistCycle сохраняет результаты цикла. Ошибки записи только логируются.
func (c *Controller) persistCycle(h *handle, sessionID string, record *domain.DecisionRecord, rec domain.Recommendation, pnl float64) {
	if c.store == nil {
		return
	}

	if err := c.store.SaveDecision(sessionID, record); err != nil {
		c.logger.Warn("⚠️ Сессия %s: не удалось сохранить решение: %v", sessionID, err)
	}
	if record.Executed != nil {
		if err := c.store.SaveTrade(sessionID, record.Executed); err != nil {
			c.logger.Warn("⚠️ Сессия %s: не удалось сохранить сделку: %v", sessionID, err)
		}
		if rec.Strategy.Name != "" {
			if err := c.store.UpsertStrategyPerformance(rec.Strategy.Name, rec.Strategy.Type, record.Executed.Success, pnl); err != nil {
				c.logger.Warn("⚠️ Сессия %s: не удалось обновить статистику стратегии: %v", sessionID, err)
			}
		}
	}
	if err := c.store.UpdateSession(h.snapshot()); err != nil {
		c.logger.Warn("⚠️ Сессия %s: не удалось обновить сессию: %v", sessionID, err)
	}
}

// finalize закрывает сессию: финальная оценка, метрики, отчет пользователю
func (c *Controller) finalize(ctx context.Context, h *handle) {
	if snapshot, err := c.market.GetPortfolio(ctx); err != nil {
		c.logger.Warn("⚠️ Сессия %s: финальная оценка портфеля недоступна: %v", h.session.ID, err)
	} else if snapshot.TotalValue > 0 {
		h.mu.Lock()
		h.session.Performance.CurrentValue = snapshot.TotalValue
		h.mu.Unlock()
	}

	h.mu.Lock()
	if h.session.Status == domain.SessionActive {
		h.session.Status = domain.SessionCompleted
	}
	h.session.Performance.Recompute()
	h.mu.Unlock()

	final := h.snapshot()

	if c.store != nil {
		if err := c.store.UpdateSession(final); err != nil {
			c.logger.Error("❌ Сессия %s: не удалось сохранить финальное состояние: %v", final.ID, err)
		}
	}

	c.logger.Info("🏁 Сессия %s завершена: статус %s, циклов %d, PnL %.2f USD (%.2f%%)",
		final.ID, final.Status, final.CycleCount, final.Performance.TotalPnL, final.Performance.ROIPercent)

	if c.notify != nil {
		c.notify(final.UserID, FormatReport(final))
	}
}
