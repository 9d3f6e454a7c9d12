package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IssueDraft is a fully defaulted issue candidate parsed from an analysis
// response, not yet persisted.
type IssueDraft struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Priority     string  `json:"priority"`
	Category     string  `json:"category"`
	ConcernLevel int     `json:"concernLevel"`
	CostLow      float64 `json:"estimatedCostLow"`
	CostHigh     float64 `json:"estimatedCostHigh"`
}

// Issue is a persisted defect record owned by a property. Issues are
// append-only: once written they are never updated or deleted by the
// pipeline.
type Issue struct {
	ID           string          `json:"id"`
	PropertyID   string          `json:"propertyId"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Priority     string          `json:"priority"`
	Category     string          `json:"category"`
	ConcernLevel int             `json:"concernLevel"`
	CostLow      decimal.Decimal `json:"estimatedCostLow"`
	CostHigh     decimal.Decimal `json:"estimatedCostHigh"`
	ImageURL     string          `json:"imageUrl"`
	DetectedDate time.Time       `json:"detectedDate"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Property is the aggregate root. The rollup fields (TotalIssues through
// EstimatedRepairCost) are always recomputed from the full linked issue set.
type Property struct {
	ID                  string          `json:"id"`
	Address             string          `json:"address"`
	City                string          `json:"city"`
	State               string          `json:"state"`
	ZipCode             string          `json:"zipCode"`
	TotalIssues         int             `json:"issueCount"`
	CriticalIssues      int             `json:"criticalIssues"`
	HighIssues          int             `json:"highIssues"`
	ModerateIssues      int             `json:"moderateIssues"`
	EstimatedRepairCost decimal.Decimal `json:"estimatedRepairCost"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// Concern level tier cutoffs: critical >= 8, high 6-7, moderate 4-5.
// Anything below 4 counts toward the total only.
const (
	CriticalConcernMin = 8
	HighConcernMin     = 6
	ModerateConcernMin = 4
)

// Rollup holds the derived aggregate fields of a property.
type Rollup struct {
	TotalIssues         int
	CriticalIssues      int
	HighIssues          int
	ModerateIssues      int
	EstimatedRepairCost decimal.Decimal
}

// ComputeRollup derives the rollup from the full current issue set. The
// repair cost estimate is the sum of per-issue cost midpoints.
func ComputeRollup(issues []Issue) Rollup {
	r := Rollup{
		TotalIssues:         len(issues),
		EstimatedRepairCost: decimal.Zero,
	}
	two := decimal.NewFromInt(2)
	for _, issue := range issues {
		switch {
		case issue.ConcernLevel >= CriticalConcernMin:
			r.CriticalIssues++
		case issue.ConcernLevel >= HighConcernMin:
			r.HighIssues++
		case issue.ConcernLevel >= ModerateConcernMin:
			r.ModerateIssues++
		}
		midpoint := issue.CostLow.Add(issue.CostHigh).Div(two)
		r.EstimatedRepairCost = r.EstimatedRepairCost.Add(midpoint)
	}
	return r
}
