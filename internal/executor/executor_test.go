package executor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillm/trading-copilot/internal/domain"
	"github.com/kirillm/trading-copilot/internal/policy"
	"github.com/kirillm/trading-copilot/pkg/utils"
)

type fakeTrader struct {
	result *domain.TradeResult
	err    error
	calls  int
}

func (f *fakeTrader) ExecuteTrade(ctx context.Context, fromToken, toToken string, amount float64, reason string) (*domain.TradeResult, error) {
	f.calls++
	return f.result, f.err
}

func newTestExecutor(t *testing.T, trader Trader, ks *KillSwitch) *Executor {
	t.Helper()
	validator, err := policy.NewValidator("nonexistent.yaml")
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	return NewExecutor(trader, validator, ks, utils.NewLogger("error"))
}

func usdcBalances(amount float64) []domain.TokenBalance {
	return []domain.TokenBalance{{Symbol: "USDC", Amount: amount, USDValue: amount}}
}

func swap(amount float64) domain.TradeParams {
	return domain.TradeParams{Type: domain.TradeSwap, FromToken: "USDC", ToToken: "SOL", Amount: amount}
}

func TestExecute_Success(t *testing.T) {
	trader := &fakeTrader{result: &domain.TradeResult{Success: true, Transaction: `{"id":"tx-1"}`}}
	e := newTestExecutor(t, trader, NewKillSwitch())

	record, warnings := e.Execute(context.Background(), swap(10), usdcBalances(100), domain.RiskModerate, "test")

	if !record.Success {
		t.Fatalf("Success = false: %s", record.Error)
	}
	if record.Result == "" {
		t.Error("Result is empty, want transaction payload")
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if trader.calls != 1 {
		t.Errorf("trader calls = %d, want 1", trader.calls)
	}
}

func TestExecute_ValidationReject(t *testing.T) {
	trader := &fakeTrader{result: &domain.TradeResult{Success: true}}
	e := newTestExecutor(t, trader, NewKillSwitch())

	// 150 при балансе 100: недостаточно средств
	record, _ := e.Execute(context.Background(), swap(150), usdcBalances(100), domain.RiskModerate, "test")

	if record.Success {
		t.Fatal("Success = true, want rejection")
	}
	if !strings.Contains(record.Error, domain.ErrInsufficientBalance.Error()) {
		t.Errorf("Error = %q, want insufficient balance", record.Error)
	}
	if trader.calls != 0 {
		t.Errorf("trader calls = %d, want 0 (rejected before API)", trader.calls)
	}
}

func TestExecute_WarningsPassThrough(t *testing.T) {
	trader := &fakeTrader{result: &domain.TradeResult{Success: true}}
	e := newTestExecutor(t, trader, NewKillSwitch())

	// 80 из 100: исполняется, но с предупреждением о доле баланса
	record, warnings := e.Execute(context.Background(), swap(80), usdcBalances(100), domain.RiskModerate, "test")

	if !record.Success {
		t.Fatalf("Success = false: %s", record.Error)
	}
	if len(warnings) == 0 {
		t.Error("warnings are empty, want balance share warning")
	}
}

func TestExecute_KillSwitch(t *testing.T) {
	trader := &fakeTrader{result: &domain.TradeResult{Success: true}}
	ks := NewKillSwitch()
	ks.Activate("test")
	e := newTestExecutor(t, trader, ks)

	record, _ := e.Execute(context.Background(), swap(10), usdcBalances(100), domain.RiskModerate, "test")

	if record.Success {
		t.Fatal("Success = true, want block by kill switch")
	}
	if record.Error != domain.ErrKillSwitchActive.Error() {
		t.Errorf("Error = %q, want kill switch error", record.Error)
	}
	if trader.calls != 0 {
		t.Errorf("trader calls = %d, want 0", trader.calls)
	}
}

func TestExecute_APIError(t *testing.T) {
	trader := &fakeTrader{err: errors.New("network down")}
	e := newTestExecutor(t, trader, NewKillSwitch())

	record, _ := e.Execute(context.Background(), swap(10), usdcBalances(100), domain.RiskModerate, "test")

	if record.Success {
		t.Fatal("Success = true, want failure on API error")
	}
	if !strings.Contains(record.Error, "network down") {
		t.Errorf("Error = %q, want underlying cause", record.Error)
	}
	if trader.calls != 1 {
		t.Errorf("trader calls = %d, want 1 (no retries)", trader.calls)
	}
}

func TestExecute_APIReject(t *testing.T) {
	trader := &fakeTrader{result: &domain.TradeResult{Success: false, Error: "slippage too high"}}
	e := newTestExecutor(t, trader, NewKillSwitch())

	record, _ := e.Execute(context.Background(), swap(10), usdcBalances(100), domain.RiskModerate, "test")

	if record.Success {
		t.Fatal("Success = true, want API rejection")
	}
	if record.Error != "slippage too high" {
		t.Errorf("Error = %q, want slippage too high", record.Error)
	}
}

func TestKillSwitch(t *testing.T) {
	ks := NewKillSwitch()

	if ks.IsActive() {
		t.Fatal("new kill switch should be inactive")
	}

	ks.Activate("emergency")
	if !ks.IsActive() {
		t.Fatal("kill switch should be active after Activate")
	}

	active, reason, _ := ks.Status()
	if !active || reason != "emergency" {
		t.Errorf("Status() = %v %q, want true emergency", active, reason)
	}

	ks.Deactivate()
	if ks.IsActive() {
		t.Fatal("kill switch should be inactive after Deactivate")
	}
}
