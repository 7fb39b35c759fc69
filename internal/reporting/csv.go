package reporting

import (
	"fmt"
	"strings"

	"whale-index-lab/internal/domain"
)

func csvPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.6f", *v)
}

// RenderHistoryCSV renders one row per annotated day, oldest first.
// Unknown price columns are left empty.
func RenderHistoryCSV(series domain.AnnotatedSeries) string {
	var sb strings.Builder

	// Header
	sb.WriteString("date,tx_count,volume,exchange_inflow,exchange_outflow,close,")
	sb.WriteString("wai,wai_v1,weight_tx,weight_volume,wii,wii_signal,")
	sb.WriteString("momentum,momentum_signal,confidence,confidence_level,return_1d,volatility_7d\n")

	// Rows
	for _, d := range series {
		sb.WriteString(fmt.Sprintf("%s,%d,%.6f,%.6f,%.6f,%s,%d,%d,%.6f,%.6f,%d,%s,%.6f,%s,%.6f,%s,%s,%s\n",
			domain.FormatDate(d.Date),
			d.TxCount,
			d.Volume,
			d.ExchangeInflow,
			d.ExchangeOutflow,
			csvPtr(d.ReferencePrice),
			d.Activity,
			d.ActivityV1,
			d.WeightTx,
			d.WeightVolume,
			d.Intent,
			d.IntentSignal,
			d.Momentum,
			d.MomentumSignal,
			d.Confidence,
			d.ConfidenceLevel,
			csvPtr(d.Return1D),
			csvPtr(d.PriceVolatility),
		))
	}

	return sb.String()
}

// RenderSignalCSV renders backtest rows as CSV string.
func RenderSignalCSV(rows []SignalMetricRow) string {
	var sb strings.Builder

	sb.WriteString("signal,direction,signal_count,total_trades,win_rate,")
	sb.WriteString("return_mean,return_median,return_p10,return_p90,")
	sb.WriteString("max_drawdown,sharpe,max_loss_streak\n")

	for _, m := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%d\n",
			m.Signal,
			m.Direction,
			m.Signals,
			m.Trades,
			m.WinRate,
			m.ReturnMean,
			m.ReturnMedian,
			m.ReturnP10,
			m.ReturnP90,
			m.MaxDrawdown,
			m.Sharpe,
			m.MaxLossStreak,
		))
	}

	return sb.String()
}
