package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"whale-index-lab/internal/domain"
)

// ComputeDataVersion hashes the input rows of a series.
// Each row contributes date|tx_count|volume|inflow|outflow|price, with "-"
// for a missing price. Identical inputs always yield the same version.
func ComputeDataVersion(series domain.Series) string {
	h := sha256.New()
	for i := 0; i < series.Len(); i++ {
		d := series.At(i)
		price := "-"
		if d.ReferencePrice != nil {
			price = formatFloat(*d.ReferencePrice)
		}
		fmt.Fprintf(h, "%s|%d|%s|%s|%s|%s\n",
			domain.FormatDate(d.Date),
			d.TxCount,
			formatFloat(d.Volume),
			formatFloat(d.ExchangeInflow),
			formatFloat(d.ExchangeOutflow),
			price,
		)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
