package redisx

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/redis/go-redis/v9"
)

// SalesStats is the Redis-backed per-product sales projection.
type SalesStats struct {
	rdb *redis.Client
}

func NewSalesStats(rdb *redis.Client) *SalesStats { return &SalesStats{rdb: rdb} }

// MarkSeen returns true the first time a service sees an event id.
func (s *SalesStats) MarkSeen(ctx context.Context, service, eventID string) (bool, error) {
	return s.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, service, eventID), "1", TTLDedup).Result()
}

func (s *SalesStats) Forget(ctx context.Context, service, eventID string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(KeyDedup, service, eventID)).Err()
}

func (s *SalesStats) Record(ctx context.Context, items []orders.ItemPrice) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, it := range items {
			pipe.HIncrBy(ctx, KeyStatsUnits, it.ProductID, int64(it.Qty))
			pipe.HIncrBy(ctx, KeyStatsRevenue, it.ProductID, int64(it.Qty)*it.PriceCents)
		}
		return nil
	})
	return err
}

func (s *SalesStats) All(ctx context.Context) ([]orders.SalesStat, error) {
	units, err := s.rdb.HGetAll(ctx, KeyStatsUnits).Result()
	if err != nil {
		return nil, err
	}
	revenue, err := s.rdb.HGetAll(ctx, KeyStatsRevenue).Result()
	if err != nil {
		return nil, err
	}
	return MergeStats(units, revenue), nil
}

// MergeStats joins the two projection hashes into rows sorted by product id.
func MergeStats(units, revenue map[string]string) []orders.SalesStat {
	out := make([]orders.SalesStat, 0, len(units))
	for id, u := range units {
		n, _ := strconv.ParseInt(u, 10, 64)
		cents, _ := strconv.ParseInt(revenue[id], 10, 64)
		out = append(out, orders.SalesStat{
			ProductID:    id,
			UnitsSold:    n,
			RevenueCents: cents,
			Revenue:      orders.FormatCents(cents),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
