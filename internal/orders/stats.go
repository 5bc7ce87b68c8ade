package orders

import (
	"sort"

	"github.com/shopspring/decimal"
)

// FormatCents renders an integer cent amount as a fixed two-decimal string.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// Tally computes the sales projection directly from stored orders.
func Tally(list []Order) []SalesStat {
	byID := map[string]*SalesStat{}
	for _, o := range list {
		for _, l := range o.Lines {
			s, ok := byID[l.ProductID]
			if !ok {
				s = &SalesStat{ProductID: l.ProductID}
				byID[l.ProductID] = s
			}
			s.UnitsSold += int64(l.Quantity)
			s.RevenueCents += l.SubtotalCents()
		}
	}
	out := make([]SalesStat, 0, len(byID))
	for _, s := range byID {
		s.Revenue = FormatCents(s.RevenueCents)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
