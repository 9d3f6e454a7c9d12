package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"inspection-pipeline/models"
)

// ErrPropertyNotFound is returned when a property ID does not resolve.
var ErrPropertyNotFound = errors.New("property not found")

// PropertyExists reports whether a property ID resolves.
func (d *Database) PropertyExists(propertyID string) (bool, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM properties WHERE id = ?", propertyID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check property %s: %w", propertyID, err)
	}
	return count > 0, nil
}

// SaveIssues persists every draft as a new issue owned by the property.
// Issues are append-only; no deduplication is performed against issues
// already stored for the same property, so repeated detections of the same
// physical defect across consecutive frames produce distinct rows. The
// detected date is assigned at ingestion time.
func (d *Database) SaveIssues(propertyID, imageURL string, drafts []models.IssueDraft) ([]models.SavedIssue, error) {
	saved := make([]models.SavedIssue, 0, len(drafts))
	now := time.Now()

	for _, draft := range drafts {
		id := uuid.New().String()
		costLow := decimal.NewFromFloat(draft.CostLow)
		costHigh := decimal.NewFromFloat(draft.CostHigh)

		_, err := d.db.Exec(`INSERT
		  INTO issues (id, property_id, title, description, priority, category,
		               concern_level, estimated_cost_low, estimated_cost_high,
		               image_url, detected_date, created_at)
		  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, propertyID, draft.Title, draft.Description, draft.Priority,
			draft.Category, draft.ConcernLevel, costLow, costHigh,
			imageURL, now.Format("2006-01-02"), now)
		if err != nil {
			return saved, fmt.Errorf("failed to insert issue %q: %w", draft.Title, err)
		}

		saved = append(saved, models.SavedIssue{
			ID:           id,
			Title:        draft.Title,
			Priority:     draft.Priority,
			ConcernLevel: draft.ConcernLevel,
			CostRange:    fmt.Sprintf("$%s - $%s", costLow.String(), costHigh.String()),
		})
	}

	return saved, nil
}

// GetPropertyIssues returns all issues currently linked to a property, in
// creation order.
func (d *Database) GetPropertyIssues(propertyID string) ([]models.Issue, error) {
	rows, err := d.db.Query(`
	  SELECT id, property_id, title, description, priority, category,
	         concern_level, estimated_cost_low, estimated_cost_high,
	         image_url, detected_date, created_at
	  FROM issues
	  WHERE property_id = ?
	  ORDER BY created_at, id`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues for property %s: %w", propertyID, err)
	}
	defer rows.Close()

	var issues []models.Issue
	for rows.Next() {
		var issue models.Issue
		if err := rows.Scan(
			&issue.ID, &issue.PropertyID, &issue.Title, &issue.Description,
			&issue.Priority, &issue.Category, &issue.ConcernLevel,
			&issue.CostLow, &issue.CostHigh, &issue.ImageURL,
			&issue.DetectedDate, &issue.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan issue row: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over issue rows: %w", err)
	}

	return issues, nil
}

// RecomputeRollup rescans the property's full current issue set and rewrites
// the derived rollup fields. The rollup is always recomputed from scratch,
// never incremented, so partial or retried writes cannot cause drift.
// Callers must serialize recomputation per property.
func (d *Database) RecomputeRollup(propertyID string) (models.Rollup, error) {
	issues, err := d.GetPropertyIssues(propertyID)
	if err != nil {
		return models.Rollup{}, err
	}

	rollup := models.ComputeRollup(issues)

	_, err = d.db.Exec(`UPDATE properties
	  SET total_issues = ?, critical_issues = ?, high_issues = ?,
	      moderate_issues = ?, estimated_repair_cost = ?
	  WHERE id = ?`,
		rollup.TotalIssues, rollup.CriticalIssues, rollup.HighIssues,
		rollup.ModerateIssues, rollup.EstimatedRepairCost, propertyID)
	if err != nil {
		return models.Rollup{}, fmt.Errorf("failed to update rollup for property %s: %w", propertyID, err)
	}

	return rollup, nil
}

// GetProperty returns one property with its current rollup fields.
func (d *Database) GetProperty(propertyID string) (*models.Property, error) {
	var p models.Property
	err := d.db.QueryRow(`
	  SELECT id, address, city, state, zip_code, total_issues, critical_issues,
	         high_issues, moderate_issues, estimated_repair_cost, created_at, updated_at
	  FROM properties
	  WHERE id = ?`, propertyID).Scan(
		&p.ID, &p.Address, &p.City, &p.State, &p.ZipCode,
		&p.TotalIssues, &p.CriticalIssues, &p.HighIssues, &p.ModerateIssues,
		&p.EstimatedRepairCost, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query property %s: %w", propertyID, err)
	}
	return &p, nil
}

// ListProperties returns all properties with their rollup fields.
func (d *Database) ListProperties() ([]models.Property, error) {
	rows, err := d.db.Query(`
	  SELECT id, address, city, state, zip_code, total_issues, critical_issues,
	         high_issues, moderate_issues, estimated_repair_cost, created_at, updated_at
	  FROM properties
	  ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(
			&p.ID, &p.Address, &p.City, &p.State, &p.ZipCode,
			&p.TotalIssues, &p.CriticalIssues, &p.HighIssues, &p.ModerateIssues,
			&p.EstimatedRepairCost, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan property row: %w", err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over property rows: %w", err)
	}

	return properties, nil
}
