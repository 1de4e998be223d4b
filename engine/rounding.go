/*
rounding.go - Largest-remainder reconciliation

PURPOSE:
  Rounding each destination's hours to two decimals independently can
  make the parts disagree with the rounded total by a cent. Reconcile
  fixes that with the largest-remainder method: floor everything to
  cents, then hand the missing cents to the values that lost the most
  in flooring.

GUARANTEE:
  sum(Reconcile(v)) == round(sum(v), 2) for every input, including
  inputs where many remainders tie exactly. Each reconciled value
  differs from its independent rounding by at most one cent.

TIE-BREAK:
  Remainder ties are broken by ascending key, so the result is fully
  deterministic regardless of map iteration order.

SEE ALSO:
  - allocate.go: Feeds raw per-destination accumulators through here
*/
package engine

import (
	"cmp"
	"sort"

	"github.com/shopspring/decimal"
)

var centScale = decimal.NewFromInt(100)

// Reconcile rounds a set of raw fractional values to two decimals such
// that the rounded values sum exactly to the rounded total.
//
// The authoritative total is round-half-away-from-zero(sum * 100) cents.
// Every value is floored to cents; the leftover cents are assigned one
// each to the values with the largest flooring remainders. Keys with a
// raw value of zero stay in the output with a zero value.
//
// Empty input returns an empty map.
func Reconcile[K cmp.Ordered](raw map[K]decimal.Decimal) map[K]decimal.Decimal {
	out := make(map[K]decimal.Decimal, len(raw))
	if len(raw) == 0 {
		return out
	}

	total := decimal.Zero
	for _, v := range raw {
		total = total.Add(v)
	}
	// decimal.Round rounds half away from zero.
	target := total.Mul(centScale).Round(0).IntPart()

	type item struct {
		key       K
		floor     int64
		remainder decimal.Decimal
	}

	items := make([]item, 0, len(raw))
	var flooredSum int64
	for k, v := range raw {
		cents := v.Mul(centScale)
		floor := cents.Floor()
		items = append(items, item{
			key:       k,
			floor:     floor.IntPart(),
			remainder: cents.Sub(floor),
		})
		flooredSum += floor.IntPart()
	}

	sort.Slice(items, func(i, j int) bool {
		if c := items[i].remainder.Cmp(items[j].remainder); c != 0 {
			return c > 0
		}
		return items[i].key < items[j].key
	})

	extra := target - flooredSum
	for _, it := range items {
		cents := it.floor
		if extra > 0 {
			cents++
			extra--
		}
		out[it.key] = decimal.New(cents, -2)
	}

	return out
}
