package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/tideraider/surf-alert-server/internal/alert"
	"github.com/tideraider/surf-alert-server/internal/surf"
)

// GetActiveAlertsForUser retrieves a user's active alerts with their
// properties eager-loaded.
func (db *DB) GetActiveAlertsForUser(userID string) ([]*alert.Alert, error) {
	query := `
		SELECT id, user_id, name, region_id, beach_id, log_entry_id,
		       alert_type, min_stars, forecast_date,
		       notification_method, contact_info, active,
		       created_at, updated_at
		FROM alerts
		WHERE user_id = $1 AND active = true
		ORDER BY created_at
	`

	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*alert.Alert
	var ids []string
	byID := make(map[string]*alert.Alert)

	for rows.Next() {
		var a alert.Alert
		var beachID, logEntryID sql.NullString
		var forecastDate sql.NullTime
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.Name,
			&a.RegionID,
			&beachID,
			&logEntryID,
			&a.Type,
			&a.MinStars,
			&forecastDate,
			&a.NotificationMethod,
			&a.ContactInfo,
			&a.Active,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		a.BeachID = beachID.String
		a.LogEntryID = logEntryID.String
		if forecastDate.Valid {
			a.ForecastDate = forecastDate.Time
		}
		alerts = append(alerts, &a)
		ids = append(ids, a.ID)
		byID[a.ID] = &a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(alerts) == 0 {
		return nil, nil
	}

	propQuery := `
		SELECT alert_id, property, optimal_value, tolerance, source_type
		FROM alert_properties
		WHERE alert_id = ANY($1)
		ORDER BY alert_id, id
	`
	propRows, err := db.Query(propQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer propRows.Close()

	for propRows.Next() {
		var alertID, propName string
		var p alert.Property
		if err := propRows.Scan(&alertID, &propName, &p.OptimalValue, &p.Range, &p.Source); err != nil {
			return nil, err
		}
		name, err := surf.ParseProperty(propName)
		if err != nil {
			// A row with an unknown property makes the alert unevaluable;
			// surface it at load time.
			return nil, fmt.Errorf("alert %s: %w", alertID, err)
		}
		p.Name = name
		if a, ok := byID[alertID]; ok {
			a.Properties = append(a.Properties, p)
		}
	}

	return alerts, propRows.Err()
}

// GetForecast retrieves one region's forecast for one day. Returns nil when
// the scraper has not produced it yet.
func (db *DB) GetForecast(regionID string, date time.Time) (*surf.ForecastSnapshot, error) {
	query := `
		SELECT id, region_id, date, wind_speed, wind_direction,
		       swell_height, swell_period, swell_direction, scraped_at
		FROM forecasts
		WHERE region_id = $1 AND date = $2
	`

	var f surf.ForecastSnapshot
	err := db.QueryRow(query, regionID, surf.DateOnly(date)).Scan(
		&f.ID,
		&f.RegionID,
		&f.Date,
		&f.WindSpeed,
		&f.WindDirection,
		&f.SwellHeight,
		&f.SwellPeriod,
		&f.SwellDirection,
		&f.ScrapedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &f, nil
}

// UpsertForecast inserts or replaces the forecast for (region, date). The
// unique constraint keeps one row per region per day.
func (db *DB) UpsertForecast(f *surf.ForecastSnapshot) error {
	query := `
		INSERT INTO forecasts (
			region_id, date, wind_speed, wind_direction,
			swell_height, swell_period, swell_direction, scraped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (region_id, date) DO UPDATE
		SET wind_speed = EXCLUDED.wind_speed,
		    wind_direction = EXCLUDED.wind_direction,
		    swell_height = EXCLUDED.swell_height,
		    swell_period = EXCLUDED.swell_period,
		    swell_direction = EXCLUDED.swell_direction,
		    scraped_at = EXCLUDED.scraped_at
		RETURNING id
	`

	return db.QueryRow(
		query,
		f.RegionID,
		surf.DateOnly(f.Date),
		f.WindSpeed,
		f.WindDirection,
		f.SwellHeight,
		f.SwellPeriod,
		f.SwellDirection,
		f.ScrapedAt,
	).Scan(&f.ID)
}

// GetBeachDailyScore retrieves one beach's computed score for one day.
// Returns nil when scoring has not run yet.
func (db *DB) GetBeachDailyScore(beachID string, date time.Time) (*surf.BeachDailyScore, error) {
	query := `
		SELECT beach_id, date, score, star_rating, created_at
		FROM beach_daily_scores
		WHERE beach_id = $1 AND date = $2
	`

	var s surf.BeachDailyScore
	err := db.QueryRow(query, beachID, surf.DateOnly(date)).Scan(
		&s.BeachID,
		&s.Date,
		&s.Score,
		&s.StarRating,
		&s.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// UpsertBeachDailyScore inserts or replaces the score for (beach, date).
func (db *DB) UpsertBeachDailyScore(s *surf.BeachDailyScore) error {
	query := `
		INSERT INTO beach_daily_scores (beach_id, date, score, star_rating)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (beach_id, date) DO UPDATE
		SET score = EXCLUDED.score,
		    star_rating = EXCLUDED.star_rating
	`

	_, err := db.Exec(query, s.BeachID, surf.DateOnly(s.Date), s.Score, s.StarRating)
	return err
}

// HasExistingCheck reports whether the alert was already evaluated on the
// given calendar day.
func (db *DB) HasExistingCheck(alertID string, date time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alert_checks
			WHERE alert_id = $1 AND date = $2
		)
	`

	var exists bool
	err := db.QueryRow(query, alertID, surf.DateOnly(date)).Scan(&exists)
	return exists, err
}

// RecordCheck appends one evaluation record. Rows are never updated.
func (db *DB) RecordCheck(c *alert.Check) error {
	query := `
		INSERT INTO alert_checks (alert_id, date, matched, details, checked_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	return db.QueryRow(
		query,
		c.AlertID,
		surf.DateOnly(c.Date),
		c.Matched,
		c.Details,
		c.CheckedAt,
	).Scan(&c.ID)
}

// RecordNotification appends one dispatch attempt record.
func (db *DB) RecordNotification(n *alert.Notification) error {
	query := `
		INSERT INTO alert_notifications (alert_id, channel, success, details, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	return db.QueryRow(
		query,
		n.AlertID,
		n.Channel,
		n.Success,
		n.Details,
		n.SentAt,
	).Scan(&n.ID)
}

// WriteInAppNotification stores an in-app notification for the dashboard.
func (db *DB) WriteInAppNotification(id, userID, title, body string) error {
	query := `
		INSERT INTO in_app_notifications (id, user_id, title, body, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
	`

	_, err := db.Exec(query, id, userID, title, body)
	return err
}

// RecentChecks returns the latest evaluation records for one alert, newest
// first. Drives the dashboard history view.
func (db *DB) RecentChecks(alertID string, limit int) ([]*alert.Check, error) {
	query := `
		SELECT id, alert_id, date, matched, details, checked_at
		FROM alert_checks
		WHERE alert_id = $1
		ORDER BY checked_at DESC
		LIMIT $2
	`

	rows, err := db.Query(query, alertID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []*alert.Check
	for rows.Next() {
		var c alert.Check
		if err := rows.Scan(&c.ID, &c.AlertID, &c.Date, &c.Matched, &c.Details, &c.CheckedAt); err != nil {
			return nil, err
		}
		checks = append(checks, &c)
	}

	return checks, rows.Err()
}

// ListRegions returns all monitored regions.
func (db *DB) ListRegions() ([]*surf.Region, error) {
	query := `SELECT id, name, forecast_url FROM regions ORDER BY id`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []*surf.Region
	for rows.Next() {
		var r surf.Region
		if err := rows.Scan(&r.ID, &r.Name, &r.ForecastURL); err != nil {
			return nil, err
		}
		regions = append(regions, &r)
	}

	return regions, rows.Err()
}

// ListBeachesForRegion returns a region's beaches with their optimal
// condition profiles.
func (db *DB) ListBeachesForRegion(regionID string) ([]*surf.Beach, error) {
	query := `
		SELECT id, region_id, name,
		       opt_wind_direction, opt_wind_direction_span, opt_max_wind_speed,
		       opt_min_swell_height, opt_max_swell_height, opt_min_swell_period,
		       opt_swell_direction, opt_swell_direction_span
		FROM beaches
		WHERE region_id = $1
		ORDER BY id
	`

	rows, err := db.Query(query, regionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beaches []*surf.Beach
	for rows.Next() {
		var b surf.Beach
		if err := rows.Scan(
			&b.ID,
			&b.RegionID,
			&b.Name,
			&b.Profile.WindDirection,
			&b.Profile.WindDirectionSpan,
			&b.Profile.MaxWindSpeed,
			&b.Profile.MinSwellHeight,
			&b.Profile.MaxSwellHeight,
			&b.Profile.MinSwellPeriod,
			&b.Profile.SwellDirection,
			&b.Profile.SwellDirectionSpan,
		); err != nil {
			return nil, err
		}
		beaches = append(beaches, &b)
	}

	return beaches, rows.Err()
}

// GetBeach retrieves a single beach by id. Returns nil when unknown.
func (db *DB) GetBeach(beachID string) (*surf.Beach, error) {
	query := `
		SELECT id, region_id, name,
		       opt_wind_direction, opt_wind_direction_span, opt_max_wind_speed,
		       opt_min_swell_height, opt_max_swell_height, opt_min_swell_period,
		       opt_swell_direction, opt_swell_direction_span
		FROM beaches
		WHERE id = $1
	`

	var b surf.Beach
	err := db.QueryRow(query, beachID).Scan(
		&b.ID,
		&b.RegionID,
		&b.Name,
		&b.Profile.WindDirection,
		&b.Profile.WindDirectionSpan,
		&b.Profile.MaxWindSpeed,
		&b.Profile.MinSwellHeight,
		&b.Profile.MaxSwellHeight,
		&b.Profile.MinSwellPeriod,
		&b.Profile.SwellDirection,
		&b.Profile.SwellDirectionSpan,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// ListUserIDsWithActiveAlerts returns every user that has at least one
// active alert, for the daily sweep.
func (db *DB) ListUserIDsWithActiveAlerts() ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM alerts
		WHERE active = true
		ORDER BY user_id
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}

	return userIDs, rows.Err()
}

// SetAlertActive soft-disables or re-enables an alert.
func (db *DB) SetAlertActive(alertID string, active bool) error {
	query := `
		UPDATE alerts
		SET active = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`

	res, err := db.Exec(query, active, alertID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("alert %s not found", alertID)
	}
	return nil
}
