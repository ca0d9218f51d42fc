package hierarchy

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/salesrecon/internal/types"
)

// RankBy selects the measure used to order products.
type RankBy string

const (
	RankByAmount   RankBy = "amount"
	RankByQuantity RankBy = "quantity"
)

// ParseRankBy validates a ranking measure name.
func ParseRankBy(s string) (RankBy, error) {
	switch RankBy(s) {
	case RankByAmount, RankByQuantity:
		return RankBy(s), nil
	case "":
		return RankByAmount, nil
	}
	return "", fmt.Errorf("unknown ranking measure %q (want amount or quantity)", s)
}

// TopProducts returns up to n products ordered by the chosen net measure,
// highest first. n <= 0 returns every eligible product.
//
// Ranking policy: only products with a positive net amount are eligible.
// Rows made up only of returns or losses would otherwise rank alongside real
// sellers. This filter applies to rankings only; aggregation and the summary
// always include every product.
func TopProducts(tree Tree, by RankBy, n int) []types.MetricRow {
	var eligible []types.MetricRow
	for _, p := range tree.Products() {
		if p.NetAmount.IsPositive() {
			eligible = append(eligible, p)
		}
	}

	key := func(r types.MetricRow) decimal.Decimal {
		if by == RankByQuantity {
			return r.NetQuantity
		}
		return r.NetAmount
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return key(eligible[i]).GreaterThan(key(eligible[j]))
	})

	if n > 0 && len(eligible) > n {
		eligible = eligible[:n]
	}
	return eligible
}
