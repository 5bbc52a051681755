package settlement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"payandpromise/internal/domain"
)

func balancesOf(amounts map[string]string) (map[uuid.UUID]decimal.Decimal, map[string]uuid.UUID) {
	balances := make(map[uuid.UUID]decimal.Decimal)
	ids := make(map[string]uuid.UUID)
	for name, amount := range amounts {
		id := uuid.New()
		ids[name] = id
		balances[id] = decimal.RequireFromString(amount)
	}
	return balances, ids
}

func TestComputeTransfersSingleFailure(t *testing.T) {
	// One failed day at stake 30 split between two peers.
	balances, ids := balancesOf(map[string]string{
		"a": "-30",
		"b": "15",
		"c": "15",
	})

	transfers := ComputeTransfers(balances)

	assert.Len(t, transfers, 2)
	for _, tr := range transfers {
		assert.Equal(t, ids["a"], tr.From)
		assert.True(t, tr.Amount.Equal(decimal.RequireFromString("15")))
	}
	assert.NotEqual(t, transfers[0].To, transfers[1].To)
}

func TestComputeTransfersEmptyAndSettled(t *testing.T) {
	assert.Empty(t, ComputeTransfers(nil))

	balances, _ := balancesOf(map[string]string{
		"a": "0",
		"b": "0.005",
		"c": "-0.01",
	})
	assert.Empty(t, ComputeTransfers(balances))
}

func TestComputeTransfersDrivesBalancesToZero(t *testing.T) {
	balances, _ := balancesOf(map[string]string{
		"a": "-52.50",
		"b": "-17.25",
		"c": "40.00",
		"d": "29.75",
	})

	transfers := ComputeTransfers(balances)

	remaining := make(map[uuid.UUID]decimal.Decimal, len(balances))
	for id, b := range balances {
		remaining[id] = b
	}
	for _, tr := range transfers {
		remaining[tr.From] = remaining[tr.From].Add(tr.Amount)
		remaining[tr.To] = remaining[tr.To].Sub(tr.Amount)
	}
	for id, b := range remaining {
		assert.True(t, b.Abs().LessThanOrEqual(domain.RoundingTolerance),
			"user %s left with %s", id, b)
	}

	// Standard min-cash-flow bound: creditors + debtors - 1.
	assert.LessOrEqual(t, len(transfers), 3)
}

func TestComputeTransfersTransferBound(t *testing.T) {
	balances, _ := balancesOf(map[string]string{
		"a": "-10", "b": "-20", "c": "-30",
		"d": "10", "e": "20", "f": "30",
	})

	transfers := ComputeTransfers(balances)
	assert.LessOrEqual(t, len(transfers), 5)
}

func TestComputeTransfersUnbalancedInputStopsCleanly(t *testing.T) {
	// Balances that do not net to zero: the matcher settles what it can and
	// stops when one side runs out, without erroring.
	balances, ids := balancesOf(map[string]string{
		"a": "-50",
		"b": "20",
	})

	transfers := ComputeTransfers(balances)

	assert.Len(t, transfers, 1)
	assert.Equal(t, ids["a"], transfers[0].From)
	assert.Equal(t, ids["b"], transfers[0].To)
	assert.True(t, transfers[0].Amount.Equal(decimal.RequireFromString("20")))
}

func TestComputeTransfersDeterministic(t *testing.T) {
	balances, _ := balancesOf(map[string]string{
		"a": "-25", "b": "-25",
		"c": "25", "d": "25",
	})

	first := ComputeTransfers(balances)
	second := ComputeTransfers(balances)

	assert.Equal(t, first, second)
}

func TestComputeTransfersDropsDust(t *testing.T) {
	balances, _ := balancesOf(map[string]string{
		"a": "-0.01",
		"b": "0.01",
	})

	assert.Empty(t, ComputeTransfers(balances))
}
