package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func issueWith(concern int, low, high int64) Issue {
	return Issue{
		ConcernLevel: concern,
		CostLow:      decimal.NewFromInt(low),
		CostHigh:     decimal.NewFromInt(high),
	}
}

func TestComputeRollupTiers(t *testing.T) {
	issues := []Issue{
		issueWith(10, 1000, 3000),
		issueWith(8, 0, 0),
		issueWith(7, 500, 1500),
		issueWith(6, 0, 0),
		issueWith(5, 100, 300),
		issueWith(4, 0, 0),
		issueWith(3, 50, 150),
		issueWith(1, 0, 0),
	}

	r := ComputeRollup(issues)

	assert.Equal(t, 8, r.TotalIssues)
	assert.Equal(t, 2, r.CriticalIssues)
	assert.Equal(t, 2, r.HighIssues)
	assert.Equal(t, 2, r.ModerateIssues)
	// Every issue lands in at most one tier; concern < 4 counts toward the
	// total only.
	assert.LessOrEqual(t, r.CriticalIssues+r.HighIssues+r.ModerateIssues, r.TotalIssues)
}

func TestComputeRollupCostIsSumOfMidpoints(t *testing.T) {
	issues := []Issue{
		issueWith(9, 1000, 2000), // midpoint 1500
		issueWith(5, 0, 200),     // midpoint 100
		issueWith(2, 100, 101),   // midpoint 100.5, below every tier but still costed
	}

	r := ComputeRollup(issues)

	assert.True(t, r.EstimatedRepairCost.Equal(decimal.NewFromFloat(1700.5)),
		"got %s", r.EstimatedRepairCost)
}

func TestComputeRollupEmpty(t *testing.T) {
	r := ComputeRollup(nil)

	assert.Equal(t, 0, r.TotalIssues)
	assert.Equal(t, 0, r.CriticalIssues)
	assert.Equal(t, 0, r.HighIssues)
	assert.Equal(t, 0, r.ModerateIssues)
	assert.True(t, r.EstimatedRepairCost.IsZero())
}

func TestComputeRollupTierBoundaries(t *testing.T) {
	tests := []struct {
		concern  int
		critical int
		high     int
		moderate int
	}{
		{8, 1, 0, 0},
		{7, 0, 1, 0},
		{6, 0, 1, 0},
		{5, 0, 0, 1},
		{4, 0, 0, 1},
		{3, 0, 0, 0},
	}
	for _, tc := range tests {
		r := ComputeRollup([]Issue{issueWith(tc.concern, 0, 0)})
		assert.Equal(t, tc.critical, r.CriticalIssues, "concern %d", tc.concern)
		assert.Equal(t, tc.high, r.HighIssues, "concern %d", tc.concern)
		assert.Equal(t, tc.moderate, r.ModerateIssues, "concern %d", tc.concern)
	}
}
