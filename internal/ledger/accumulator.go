// Package ledger folds immutable ledger entries into per-user balances and
// serves transaction history.
package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payandpromise/internal/domain"
)

// Accumulate folds ledger entries into a net balance per user. Winnings and
// refunds credit the user, penalties debit. Entries store positive magnitudes
// but the fold takes the absolute value of penalties anyway, so a stray
// negative row cannot flip the sign. The fold is pure; recomputing from the
// same entries always yields the same map. Empty input yields an empty map.
func Accumulate(entries []*domain.LedgerEntry) map[uuid.UUID]decimal.Decimal {
	balances := make(map[uuid.UUID]decimal.Decimal, 8)

	for _, entry := range entries {
		current := balances[entry.UserID]
		switch entry.Type {
		case domain.LedgerEntryPenalty:
			balances[entry.UserID] = current.Sub(entry.Amount.Abs())
		case domain.LedgerEntryWinnings, domain.LedgerEntryRefund:
			balances[entry.UserID] = current.Add(entry.Amount)
		}
	}

	for userID, balance := range balances {
		balances[userID] = balance.Round(2)
	}
	return balances
}

// Summary is one user's ledger activity within a promise, split by kind.
type Summary struct {
	Winnings  decimal.Decimal `json:"winnings"`
	Penalties decimal.Decimal `json:"penalties"`
	Refunds   decimal.Decimal `json:"refunds"`
}

// Net is winnings plus refunds minus penalties.
func (s Summary) Net() decimal.Decimal {
	return s.Winnings.Add(s.Refunds).Sub(s.Penalties).Round(2)
}

// Summarize totals one user's entries by kind, all as positive magnitudes.
func Summarize(entries []*domain.LedgerEntry, userID uuid.UUID) Summary {
	var sum Summary
	for _, entry := range entries {
		if entry.UserID != userID {
			continue
		}
		switch entry.Type {
		case domain.LedgerEntryPenalty:
			sum.Penalties = sum.Penalties.Add(entry.Amount.Abs())
		case domain.LedgerEntryWinnings:
			sum.Winnings = sum.Winnings.Add(entry.Amount)
		case domain.LedgerEntryRefund:
			sum.Refunds = sum.Refunds.Add(entry.Amount)
		}
	}
	sum.Winnings = sum.Winnings.Round(2)
	sum.Penalties = sum.Penalties.Round(2)
	sum.Refunds = sum.Refunds.Round(2)
	return sum
}
