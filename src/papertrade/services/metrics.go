package services

import (
	"context"
	"math"

	"github.com/montanaflynn/stats"
)

// PerformanceMetrics summarizes realized trading results for an account.
// Only closed orders that carry a realized P&L count as trades: open
// positions and the synthesized legs of a flatten do not skew the ratios.
type PerformanceMetrics struct {
	TotalReturn        float64 `json:"totalReturn"`
	TotalReturnPercent float64 `json:"totalReturnPercent"`
	WinRate            float64 `json:"winRate"`
	TotalTrades        int     `json:"totalTrades"`
	AverageWin         float64 `json:"averageWin"`
	AverageLoss        float64 `json:"averageLoss"`
}

// GetPerformanceMetrics reconciles the account and computes realized
// performance from its closed orders.
func (e *Engine) GetPerformanceMetrics(ctx context.Context, accountID string) (*PerformanceMetrics, error) {
	acct, err := e.loadAccount(accountID)
	if err != nil {
		return nil, err
	}

	acct.mutex.Lock()
	defer acct.mutex.Unlock()

	if err := e.reconcile(ctx, acct); err != nil {
		return nil, err
	}

	metrics := &PerformanceMetrics{}

	var wins, losses []float64

	for _, order := range acct.orderList() {
		if order.RealizedPnL == nil {
			continue
		}

		pnl := *order.RealizedPnL
		metrics.TotalTrades++

		if pnl > 0 {
			wins = append(wins, pnl)
		} else {
			losses = append(losses, pnl)
		}
	}

	portfolio := acct.portfolio
	metrics.TotalReturn = portfolio.TotalValue() - portfolio.InitialBalance
	if portfolio.InitialBalance > 0 {
		metrics.TotalReturnPercent = metrics.TotalReturn / portfolio.InitialBalance * 100
	}

	if metrics.TotalTrades > 0 {
		metrics.WinRate = float64(len(wins)) / float64(metrics.TotalTrades) * 100
	}

	if avg, err := stats.Mean(wins); err == nil && !math.IsNaN(avg) {
		metrics.AverageWin = avg
	}

	if avg, err := stats.Mean(losses); err == nil && !math.IsNaN(avg) {
		metrics.AverageLoss = avg
	}

	return metrics, nil
}
