package usage

import (
	"context"
	"time"

	domusage "github.com/openpermit/permitsearch/internal/domain/usage"
	"github.com/openpermit/permitsearch/internal/domain/usage/budget"
	"github.com/openpermit/permitsearch/internal/domain/usage/metrics"
)

// Service handles embedding usage reporting for the permit collection.
type Service struct {
	br         BudgetReader
	collection string
	costPer1M  int // millidollars per million tokens
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader, collection string) *Service {
	return &Service{br: br, collection: collection}
}

// WithCost sets the embedding price in millidollars per million tokens,
// enabling cost estimates in reports.
func (s *Service) WithCost(millidollarsPerMillionTokens int) *Service {
	if millidollarsPerMillionTokens > 0 {
		s.costPer1M = millidollarsPerMillionTokens
	}
	return s
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := time.Now().UTC()
	var start, end int64
	var limit, used, requests, remaining int64

	switch period {
	case domusage.PeriodDay:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.Add(24 * time.Hour)
		start = dayStart.UnixMilli()
		end = dayEnd.UnixMilli()
		if s.br != nil {
			limit = s.br.DailyLimit()
			used = s.br.DailyUsed()
			requests = s.br.DailyRequests()
			remaining = s.br.RemainingDaily()
		}
	case domusage.PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthEnd := monthStart.AddDate(0, 1, 0)
		start = monthStart.UnixMilli()
		end = monthEnd.UnixMilli()
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			used = s.br.MonthlyUsed()
			requests = s.br.MonthlyRequests()
			remaining = s.br.RemainingMonthly()
		}
	default:
		// total: без границ периода, счётчики месячные
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			used = s.br.MonthlyUsed()
			requests = s.br.MonthlyRequests()
			remaining = s.br.RemainingMonthly()
		}
	}

	exhausted := limit > 0 && remaining <= 0
	resetsAt := end

	cost := int(used) * s.costPer1M / 1_000_000

	b := budget.New(int(limit), int(remaining), exhausted, resetsAt)
	m := metrics.New(int(requests), int(used), cost)

	return domusage.NewReport(period, start, end, s.collection, m, b)
}
