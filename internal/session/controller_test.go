package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillm/trading-copilot/internal/domain"
	"github.com/kirillm/trading-copilot/pkg/utils"
)

type fakeMarket struct {
	mu         sync.Mutex
	prices     map[string]float64
	values     []float64 // последовательность TotalValue для GetPortfolio
	valueCalls int
	priceErr   error
	portErr    error
}

func (f *fakeMarket) GetPrice(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	price, ok := f.prices[symbol]
	if !ok {
		return 0, domain.ErrExternalFetch
	}
	return price, nil
}

func (f *fakeMarket) GetPortfolio(ctx context.Context) (*domain.PortfolioSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.portErr != nil {
		return nil, f.portErr
	}

	value := f.values[len(f.values)-1]
	if f.valueCalls < len(f.values) {
		value = f.values[f.valueCalls]
	}
	f.valueCalls++

	return &domain.PortfolioSnapshot{
		TotalValue: value,
		Balances:   []domain.TokenBalance{{Symbol: "USDC", Amount: value, USDValue: value}},
	}, nil
}

type fakeNewsGateway struct {
	items []domain.NewsItem
	err   error
}

func (f *fakeNewsGateway) FetchNews(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	return f.items, f.err
}

type fakeOracle struct {
	rec   domain.Recommendation
	panic bool
	calls int32
}

func (f *fakeOracle) Ask(ctx context.Context, req domain.OracleRequest) domain.Recommendation {
	atomic.AddInt32(&f.calls, 1)
	if f.panic {
		panic("oracle exploded")
	}
	return f.rec
}

type fakeExecutor struct {
	record   domain.TradeRecord
	warnings []string
	calls    int32
}

func (f *fakeExecutor) Execute(ctx context.Context, trade domain.TradeParams, balances []domain.TokenBalance, riskLevel, reason string) (*domain.TradeRecord, []string) {
	atomic.AddInt32(&f.calls, 1)
	record := f.record
	record.FromToken = trade.FromToken
	record.ToToken = trade.ToToken
	record.Amount = trade.Amount
	record.Timestamp = time.Now()
	return &record, f.warnings
}

type memStore struct {
	mu        sync.Mutex
	failAll   bool
	sessions  int
	updates   int
	trades    int
	decisions int
	upserts   int
}

func (m *memStore) maybeErr() error {
	if m.failAll {
		return errors.New("db down")
	}
	return nil
}

func (m *memStore) CreateSession(s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions++
	return m.maybeErr()
}

func (m *memStore) UpdateSession(s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	return m.maybeErr()
}

func (m *memStore) SaveTrade(sessionID string, t *domain.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades++
	return m.maybeErr()
}

func (m *memStore) SaveDecision(sessionID string, d *domain.DecisionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions++
	return m.maybeErr()
}

func (m *memStore) UpsertStrategyPerformance(name, strategyType string, success bool, pnl float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	return m.maybeErr()
}

func (m *memStore) GetStrategyPerformance(limit int) ([]domain.StrategyPerformance, error) {
	if err := m.maybeErr(); err != nil {
		return nil, err
	}
	return nil, nil
}

type notifyCollector struct {
	mu       sync.Mutex
	messages []string
}

func (n *notifyCollector) notify(userID int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
}

func (n *notifyCollector) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func holdOracle() *fakeOracle {
	return &fakeOracle{rec: domain.Recommendation{
		ShouldTrade: false,
		Confidence:  0.9,
		Strategy:    domain.Strategy{Name: "hold", Type: domain.StrategyHold},
		Reasoning:   []string{"market is flat"},
	}}
}

func tradeOracle() *fakeOracle {
	return &fakeOracle{rec: domain.Recommendation{
		ShouldTrade: true,
		Confidence:  0.8,
		Strategy:    domain.Strategy{Name: "usdc rotation", Type: domain.StrategyMomentum},
		Trade:       domain.TradeParams{Type: domain.TradeSwap, FromToken: "USDC", ToToken: "SOL", Amount: 10},
		Reasoning:   []string{"bullish"},
	}}
}

func newTestController(market *fakeMarket, oracle Oracle, exec TradeExecutor, store Store, notify Notifier) *Controller {
	return NewController(
		market,
		&fakeNewsGateway{},
		nil, // дефолтный keyword-классификатор
		oracle,
		exec,
		store,
		notify,
		5,
		utils.NewLogger("error"),
	)
}

func testConfig() domain.SessionConfig {
	return domain.SessionConfig{
		Duration:    time.Hour,
		Tokens:      []string{"SOL"},
		RiskLevel:   domain.RiskModerate,
		TestingMode: true, // короткий интервал цикла
	}
}

func waitForCycles(t *testing.T, c *Controller, id string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, err := c.GetStatus(id)
		return err == nil && s.CycleCount >= n
	}, 5*time.Second, 10*time.Millisecond, "session did not reach %d cycles", n)
}

func stopAndWait(t *testing.T, c *Controller, id string) *domain.Session {
	t.Helper()
	_, err := c.Stop(id)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		c.Wait(id)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("session did not finalize after stop")
	}

	s, err := c.GetStatus(id)
	require.NoError(t, err)
	return s
}

func TestStartSession_Defaults(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"SOL": 150}, values: []float64{1000}}
	c := newTestController(market, holdOracle(), &fakeExecutor{}, nil, nil)

	s, err := c.StartSession(context.Background(), 1, domain.SessionConfig{
		Duration:    time.Second, // ниже минимума: должен быть поднят
		TestingMode: true,
	})
	require.NoError(t, err)
	defer stopAndWait(t, c, s.ID)

	assert.Equal(t, domain.SessionActive, s.Status)
	assert.Equal(t, domain.MinSessionDuration, s.Config.Duration)
	assert.Equal(t, domain.RiskModerate, s.Config.RiskLevel)
	assert.Equal(t, domain.DefaultTokenUniverse, s.Config.Tokens)
	assert.Equal(t, 1000.0, s.Performance.StartValue)
	assert.NotEmpty(t, s.ID)
}

func TestStartSession_ClampsLongDuration(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"SOL": 150}, values: []float64{1000}}
	c := newTestController(market, holdOracle(), &fakeExecutor{}, nil, nil)

	s, err := c.StartSession(context.Background(), 1, domain.SessionConfig{
		Duration:    1000 * 24 * time.Hour,
		TestingMode: true,
	})
	require.NoError(t, err)
	defer stopAndWait(t, c, s.ID)

	assert.Equal(t, domain.MaxSessionDuration, s.Config.Duration)
}

func TestStartSession_OnePerUser(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"SOL": 150}, values: []float64{1000}}
	c := newTestController(market, holdOracle(), &fakeExecutor{}, nil, nil)

	s, err := c.StartSession(context.Background(), 1, testConfig())
	require.NoError(t, err)
	defer stopAndWait(t, c, s.ID)

	_, err = c.StartSession(context.Background(), 1, testConfig())
	assert.Error(t, err, "second session for the same user must be rejected")

	// Другой пользователь может запустить свою
	other, err := c.StartSession(context.Background(), 2, testConfig())
	require.NoError(t, err)
	stopAndWait(t, c, other.ID)
}

func TestSession_CyclesAndStop(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"SOL": 150}, values: []float64{1000, 1200}}
	oracle := holdOracle()
	exec := &fakeExecutor{}
	collector := &notifyCollector{}
	c := newTestController(market, oracle, exec, nil, collector.notify)

	s, err := c.StartSession(context.Background(), 1, testConfig())
	require.NoError(t, err)

	waitForCycles(t, c, s.ID, 1)

	final := stopAndWait(t, c, s.ID)

	assert.Equal(t, domain.SessionStoppedByUser, final.Status)
	assert.GreaterOrEqual(t, final.CycleCount, 1)
	assert.GreaterOrEqual(t, len(final.ReasoningLog), 1)

	// Hold-рекомендация не должна приводить к сделкам
	assert.Zero(t, atomic.LoadInt32(&exec.calls))
	assert.Empty(t, final.Trades)

	// Отчет доставлен
	assert.Equal(t, 1, collector.count())

	// PnL = текущая стоимость минус стартовая
	assert.InDelta(t, final.Performance.CurrentValue-final.Performance.StartValue, final.Performance.TotalPnL, 1e-9)
}

func TestSession_ExecutesRecommendedTrade(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"SOL": 150}, values: []float64{1000}}
	oracle := tradeOracle()
	exec := &fakeExecutor{record: domain.TradeRecord{Success: true, Result: `{"id":"tx"}`}}
	store := &memStore{}
	c := newTestController(market, oracle, exec, store, nil)

	s, err := c.StartSession(context.Background(), 1, testConfig())
	require.NoError(t, err)

	waitForCycles(t, c, s.ID, 1)
	final := stopAndWait(t, c, s.ID)

	assert.GreaterOrEqual(t, int(atomic.LoadInt32(&exec.calls)), 1)
	require.NotEmpty(t, final.Trades)
	assert.Equal(t, "USDC", final.Trades[0].FromToken)
	assert.Equal(t, "SOL", final.Trades[0].ToToken)
	assert.True(t, final.Trades[0].Success)
	assert.GreaterOrEqual(t, final.Performance.TotalTrades, 1)
	assert.GreaterOrEqual(t, final.Performance.SuccessfulTrades, 1)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.sessions)
	assert.GreaterOrEqual(t, store.decisions, 1)
	assert.GreaterOrEqual(t, store.trades, 1)
	assert.GreaterOrEqual(t, store.upserts, 1)
}

func TestSession_SurvivesStoreFailures(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"SOL": 150}, values: []float64{1000}}
	store := &memStore{failAll: true}
	c := newTestController(market, holdOracle(), &fakeExecutor{}, store, nil)

	s, err := c.StartSession(context.Background(), 1, testConfig())
	require.NoError(t, err, "store failure must not abort session start")

	waitForCycles(t, c, s.ID, 1)
	final := stopAndWait(t, c, s.ID)

	assert.GreaterOrEqual(t, final.CycleCount, 1)
	assert.GreaterOrEqual(t, len(final.ReasoningLog), 1)
}

func TestSession_SurvivesPortfolioOutage(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"SOL": 150}, portErr: errors.New("api down")}
	oracle := holdOracle()
	c := newTestController(market, oracle, &fakeExecutor{}, nil, nil)

	s, err := c.StartSession(context.Background(), 1, testConfig())
	require.NoError(t, err, "portfolio outage must not abort session start")
	assert.Zero(t, s.Performance.StartValue)

	waitForCycles(t, c, s.ID, 1)
	final := stopAndWait(t, c, s.ID)

	assert.GreaterOrEqual(t, final.CycleCount, 1)
	assert.GreaterOrEqual(t, int(atomic.LoadInt32(&oracle.calls)), 1)
	assert.Zero(t, final.Performance.ROIPercent, "ROI must stay 0 for zero start value")
}

func TestSession_RecoversFromOraclePanic(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"SOL": 150}, values: []float64{1000}}
	oracle := &fakeOracle{panic: true}
	c := newTestController(market, oracle, &fakeExecutor{}, nil, nil)

	s, err := c.StartSession(context.Background(), 1, testConfig())
	require.NoError(t, err)

	// Дождаться хотя бы одной паники в цикле
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&oracle.calls) >= 1
	}, 5*time.Second, 10*time.Millisecond)

	final := stopAndWait(t, c, s.ID)

	// Горутина пережила панику и корректно финализировалась
	assert.Equal(t, domain.SessionStoppedByUser, final.Status)
}

func TestSession_CompletesAtDeadline(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"SOL": 150}, values: []float64{1000}}
	collector := &notifyCollector{}
	c := newTestController(market, holdOracle(), &fakeExecutor{}, nil, collector.notify)

	now := time.Now()
	session := &domain.Session{
		ID:        "expired-session",
		UserID:    1,
		Config:    testConfig(),
		Status:    domain.SessionActive,
		StartTime: now.Add(-2 * time.Hour),
		EndTime:   now.Add(-time.Hour), // дедлайн уже прошел
	}
	h := newHandle(session)
	c.registry.add(h)

	go c.run(h)

	select {
	case <-h.done:
	case <-time.After(3 * time.Second):
		t.Fatal("expired session did not finalize")
	}

	final, err := c.GetStatus(session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, final.Status)
	assert.Equal(t, 1, collector.count())
}

func TestSetNotifier_DeliversReports(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"SOL": 150}, values: []float64{1000}}
	collector := &notifyCollector{}

	// Notifier подключается после сборки контроллера, как при связывании с ботом
	c := newTestController(market, holdOracle(), &fakeExecutor{}, nil, nil)
	c.SetNotifier(collector.notify)

	s, err := c.StartSession(context.Background(), 1, testConfig())
	require.NoError(t, err)

	waitForCycles(t, c, s.ID, 1)
	stopAndWait(t, c, s.ID)

	assert.Equal(t, 1, collector.count())
}

func TestStop_Errors(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"SOL": 150}, values: []float64{1000}}
	c := newTestController(market, holdOracle(), &fakeExecutor{}, nil, nil)

	_, err := c.Stop("no-such-session")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	s, err := c.StartSession(context.Background(), 1, testConfig())
	require.NoError(t, err)
	stopAndWait(t, c, s.ID)

	// Повторная остановка завершенной сессии
	_, err = c.Stop(s.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
}

func TestStopForUser(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"SOL": 150}, values: []float64{1000}}
	c := newTestController(market, holdOracle(), &fakeExecutor{}, nil, nil)

	_, err := c.StopForUser(42)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	s, err := c.StartSession(context.Background(), 42, testConfig())
	require.NoError(t, err)

	stopped, err := c.StopForUser(42)
	require.NoError(t, err)
	assert.Equal(t, s.ID, stopped.ID)
	c.Wait(s.ID)
}
