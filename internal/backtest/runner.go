package backtest

import (
	"context"
	"time"

	"whale-index-lab/internal/domain"
	"whale-index-lab/internal/idhash"
)

// Runner evaluates signals over an annotated series.
type Runner struct {
	cfg Config
}

// NewRunner creates a new backtest runner.
func NewRunner(cfg Config) *Runner {
	return &Runner{cfg: cfg}
}

// Run backtests one signal. Firing days whose horizon lies beyond the
// series, or that lack an entry or exit price, are excluded.
func (r *Runner) Run(series domain.AnnotatedSeries, sig Signal) *Results {
	res := &Results{
		SignalName: sig.Name,
		Direction:  sig.Direction,
		Horizon:    r.cfg.Horizon,
		Range:      series.DateRange(),
		Trades:     make([]Trade, 0),
	}

	byDate := make(map[time.Time]int, len(series))
	for i, d := range series {
		byDate[d.Date] = i
	}

	for _, day := range series {
		if !sig.Fires(day) {
			continue
		}
		res.SignalCount++

		exitIdx, ok := byDate[day.Date.AddDate(0, 0, r.cfg.Horizon)]
		if !ok || day.ReferencePrice == nil || series[exitIdx].ReferencePrice == nil {
			res.Excluded++
			continue
		}

		entry := *day.ReferencePrice
		exit := *series[exitIdx].ReferencePrice
		fwd := (exit - entry) / entry
		ret := fwd
		if sig.Direction == domain.Bearish {
			ret = -fwd
		}
		res.Trades = append(res.Trades, Trade{
			ID:            idhash.ComputeTradeID(sig.Name, r.cfg.Horizon, day.Date),
			EntryDate:     day.Date,
			ExitDate:      series[exitIdx].Date,
			EntryPrice:    entry,
			ExitPrice:     exit,
			ForwardReturn: fwd,
			Return:        ret,
			Win:           ret > 0,
		})
	}

	if len(res.Trades) == 0 {
		res.Err = &domain.InsufficientDataError{
			Metric:    "backtest:" + sig.Name,
			Required:  1,
			Available: 0,
		}
		return res
	}

	res.Metrics = computeMetrics(res.Trades, r.cfg.AnnualizationFactor)
	return res
}

// RunAll backtests each signal in order. It stops early if ctx is done.
func (r *Runner) RunAll(ctx context.Context, series domain.AnnotatedSeries, signals []Signal) ([]*Results, error) {
	out := make([]*Results, 0, len(signals))
	for _, sig := range signals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, r.Run(series, sig))
	}
	return out, nil
}
