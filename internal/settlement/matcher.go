// Package settlement computes minimal pairwise transfers from net balances
// and tracks each transfer's lifecycle.
package settlement

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payandpromise/internal/domain"
)

// Transfer is a computed debt: From owes To the given amount.
type Transfer struct {
	From   uuid.UUID
	To     uuid.UUID
	Amount decimal.Decimal
}

type stake struct {
	userID    uuid.UUID
	remaining decimal.Decimal
}

// ComputeTransfers nets per-user balances into a minimal transfer list using
// greedy min-cash-flow matching: repeatedly settle the largest debtor against
// the largest creditor. Balances within 0.01 of zero are already settled and
// transfers at or below 0.01 are dropped as dust. Output length is bounded by
// creditors+debtors-1 and the result is deterministic for identical input
// (ties break on user id).
func ComputeTransfers(balances map[uuid.UUID]decimal.Decimal) []Transfer {
	var creditors, debtors []stake
	for userID, balance := range balances {
		rounded := balance.Round(2)
		switch {
		case rounded.GreaterThan(domain.RoundingTolerance):
			creditors = append(creditors, stake{userID: userID, remaining: rounded})
		case rounded.LessThan(domain.RoundingTolerance.Neg()):
			debtors = append(debtors, stake{userID: userID, remaining: rounded.Abs()})
		}
	}

	sortByAmountDesc(creditors)
	sortByAmountDesc(debtors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].remaining, creditors[j].remaining).Round(2)
		if amount.GreaterThan(domain.RoundingTolerance) {
			transfers = append(transfers, Transfer{
				From:   debtors[i].userID,
				To:     creditors[j].userID,
				Amount: amount,
			})
		}

		debtors[i].remaining = debtors[i].remaining.Sub(amount)
		creditors[j].remaining = creditors[j].remaining.Sub(amount)

		if debtors[i].remaining.LessThan(domain.RoundingTolerance) {
			i++
		}
		if creditors[j].remaining.LessThan(domain.RoundingTolerance) {
			j++
		}
	}

	return transfers
}

func sortByAmountDesc(stakes []stake) {
	sort.Slice(stakes, func(a, b int) bool {
		if !stakes[a].remaining.Equal(stakes[b].remaining) {
			return stakes[a].remaining.GreaterThan(stakes[b].remaining)
		}
		return stakes[a].userID.String() < stakes[b].userID.String()
	})
}
