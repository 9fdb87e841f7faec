package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/time/rate"

	"github.com/kirillm/trading-copilot/internal/domain"
)

// priceCacheTTL цены устаревают быстро, кэш только сглаживает повторные запросы внутри цикла
const priceCacheTTL = 30 * time.Second

// Client клиент торгового sandbox API
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cache   *ristretto.Cache
}

type priceResponse struct {
	Success bool    `json:"success"`
	Price   float64 `json:"price"`
	Error   string  `json:"error,omitempty"`
}

type portfolioResponse struct {
	Success    bool    `json:"success"`
	TotalValue float64 `json:"totalValue"`
	Tokens     []struct {
		Symbol string  `json:"symbol"`
		Amount float64 `json:"amount"`
		Value  float64 `json:"value"`
		Chain  string  `json:"chain"`
	} `json:"tokens"`
	Error string `json:"error,omitempty"`
}

type tradeRequest struct {
	FromToken string  `json:"fromToken"`
	ToToken   string  `json:"toToken"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason,omitempty"`
}

type tradeResponse struct {
	Success     bool            `json:"success"`
	Transaction json.RawMessage `json:"transaction,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// NewClient создает новый клиент торгового API
func NewClient(apiKey, baseURL string, requestsPerSecond float64) (*Client, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create price cache: %w", err)
	}

	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 10),
		cache:   cache,
	}, nil
}

// GetPrice получает текущую цену токена в USD
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	if cached, ok := c.cache.Get("price:" + symbol); ok {
		return cached.(float64), nil
	}

	url := fmt.Sprintf("%s/api/price?token=%s", c.baseURL, symbol)

	var priceResp priceResponse
	if err := c.doGet(ctx, url, &priceResp); err != nil {
		return 0, err
	}

	if !priceResp.Success {
		return 0, fmt.Errorf("%w: %s", domain.ErrExternalFetch, priceResp.Error)
	}

	if priceResp.Price <= 0 {
		return 0, fmt.Errorf("%w: no price data for %s", domain.ErrExternalFetch, symbol)
	}

	c.cache.SetWithTTL("price:"+symbol, priceResp.Price, 1, priceCacheTTL)

	return priceResp.Price, nil
}

// GetPortfolio получает текущий портфель агента
func (c *Client) GetPortfolio(ctx context.Context) (*domain.PortfolioSnapshot, error) {
	url := fmt.Sprintf("%s/api/agent/portfolio", c.baseURL)

	var portfolioResp portfolioResponse
	if err := c.doGet(ctx, url, &portfolioResp); err != nil {
		return nil, err
	}

	if !portfolioResp.Success {
		return nil, fmt.Errorf("%w: %s", domain.ErrExternalFetch, portfolioResp.Error)
	}

	snapshot := &domain.PortfolioSnapshot{
		TotalValue: portfolioResp.TotalValue,
	}
	for _, token := range portfolioResp.Tokens {
		snapshot.Balances = append(snapshot.Balances, domain.TokenBalance{
			Symbol:   token.Symbol,
			Amount:   token.Amount,
			USDValue: token.Value,
			Chain:    token.Chain,
		})
	}

	return snapshot, nil
}

// ExecuteTrade отправляет сделку в торговый API
func (c *Client) ExecuteTrade(ctx context.Context, fromToken, toToken string, amount float64, reason string) (*domain.TradeResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqBody := tradeRequest{
		FromToken: fromToken,
		ToToken:   toToken,
		Amount:    amount,
		Reason:    reason,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trade request: %w", err)
	}

	url := fmt.Sprintf("%s/api/trade/execute", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExecutionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var tradeResp tradeResponse
	if err := json.Unmarshal(body, &tradeResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trade response: %w", err)
	}

	result := &domain.TradeResult{
		Success:     tradeResp.Success,
		Transaction: string(tradeResp.Transaction),
		Error:       tradeResp.Error,
	}

	if !tradeResp.Success && tradeResp.Error == "" {
		result.Error = fmt.Sprintf("trade API returned status %d", resp.StatusCode)
	}

	return result, nil
}

// doGet выполняет GET запрос с авторизацией и rate limiting
func (c *Client) doGet(ctx context.Context, url string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExternalFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", domain.ErrExternalFetch, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func (c *Client) setAuthHeader(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}
