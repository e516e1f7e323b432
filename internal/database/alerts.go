package database

import (
	"database/sql"
	"fmt"

	"github.com/tideraider/surf-alert-server/internal/alert"
	"github.com/tideraider/surf-alert-server/internal/surf"
)

// CreateAlert inserts an alert and its properties in one transaction.
func (db *DB) CreateAlert(a *alert.Alert) error {
	if err := a.Validate(); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var forecastDate any
	if !a.ForecastDate.IsZero() {
		forecastDate = surf.DateOnly(a.ForecastDate)
	}

	query := `
		INSERT INTO alerts (
			id, user_id, name, region_id, beach_id, log_entry_id,
			alert_type, min_stars, forecast_date,
			notification_method, contact_info, active
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, $11, $12)
	`
	if _, err := tx.Exec(query,
		a.ID, a.UserID, a.Name, a.RegionID, a.BeachID, a.LogEntryID,
		a.Type, a.MinStars, forecastDate,
		a.NotificationMethod, a.ContactInfo, a.Active,
	); err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	for _, p := range a.Properties {
		if err := insertProperty(tx, a.ID, p); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReplaceProperties swaps an alert's property set wholesale: every existing
// row is deleted and the new set inserted inside one transaction. Properties
// are never partially patched.
func (db *DB) ReplaceProperties(alertID string, props []alert.Property) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM alert_properties WHERE alert_id = $1`, alertID); err != nil {
		return fmt.Errorf("failed to clear properties: %w", err)
	}

	for _, p := range props {
		if err := insertProperty(tx, alertID, p); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertProperty(tx *sql.Tx, alertID string, p alert.Property) error {
	query := `
		INSERT INTO alert_properties (alert_id, property, optimal_value, tolerance, source_type)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(query, alertID, p.Name.String(), p.OptimalValue, p.Range, p.Source); err != nil {
		return fmt.Errorf("failed to insert property %s: %w", p.Name, err)
	}
	return nil
}

// alertChildTables lists every table holding rows owned by an alert, in the
// order they must be deleted. The parent row goes last; the ordering is
// pinned by a test so a new dependent table cannot silently break the
// cascade.
func alertChildTables() []string {
	return []string{
		"alert_properties",
		"alert_checks",
		"alert_notifications",
	}
}

// DeleteAlert removes an alert and every dependent row inside one
// transaction, children before parent.
func (db *DB) DeleteAlert(alertID string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range alertChildTables() {
		query := fmt.Sprintf(`DELETE FROM %s WHERE alert_id = $1`, table)
		if _, err := tx.Exec(query, alertID); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	res, err := tx.Exec(`DELETE FROM alerts WHERE id = $1`, alertID)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("alert %s not found", alertID)
	}

	return tx.Commit()
}
