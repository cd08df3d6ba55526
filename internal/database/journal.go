package database

import (
	"context"
	"time"

	"vatelanka-driver/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Journal stores route history and daily reports in Postgres
type Journal struct {
	db *sqlx.DB
}

func NewJournal(db *sqlx.DB) *Journal {
	return &Journal{db: db}
}

// RecordTransition saves a confirmed route transition
func (j *Journal) RecordTransition(ctx context.Context, e models.RouteEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	query := `
		INSERT INTO route_events (
			id, truck_id, municipal_council, district, ward, supervisor_id, from_status, to_status, occurred_at
		) VALUES (
			:id, :truck_id, :municipal_council, :district, :ward, :supervisor_id, :from_status, :to_status, :occurred_at
		)
	`
	if _, err := j.db.NamedExecContext(ctx, query, e); err != nil {
		return errors.Wrap(err, "insert route event")
	}
	return nil
}

// RecordSample saves an accepted GPS sample
func (j *Journal) RecordSample(ctx context.Context, r models.LocationRecord) error {
	query := `
		INSERT INTO location_samples (truck_id, latitude, longitude, heading, speed, timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := j.db.ExecContext(ctx, query, r.TruckID, r.Latitude, r.Longitude, r.Heading, r.Speed, r.Timestamp, r.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "insert location sample")
	}
	return nil
}

// RouteEvents returns the most recent transitions of a truck
func (j *Journal) RouteEvents(ctx context.Context, truckID string, limit int) ([]models.RouteEvent, error) {
	var events []models.RouteEvent
	query := `SELECT * FROM route_events WHERE truck_id = $1 ORDER BY occurred_at DESC LIMIT $2`
	if err := j.db.SelectContext(ctx, &events, query, truckID, limit); err != nil {
		return nil, errors.Wrap(err, "select route events")
	}
	return events, nil
}

// CreateDailyReport validates and stores a daily report
func (j *Journal) CreateDailyReport(ctx context.Context, r models.DailyReport) (*models.DailyReport, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().Unix()

	query := `
		INSERT INTO daily_reports (id, truck_id, report_date, area, description, created_at)
		VALUES (:id, :truck_id, :report_date, :area, :description, :created_at)
	`
	if _, err := j.db.NamedExecContext(ctx, query, r); err != nil {
		return nil, errors.Wrap(err, "insert daily report")
	}
	return &r, nil
}

// DailyReports lists a truck's reports, newest first
func (j *Journal) DailyReports(ctx context.Context, truckID string) ([]models.DailyReport, error) {
	reports := []models.DailyReport{}
	query := `SELECT * FROM daily_reports WHERE truck_id = $1 ORDER BY report_date DESC, created_at DESC`
	if err := j.db.SelectContext(ctx, &reports, query, truckID); err != nil {
		return nil, errors.Wrap(err, "select daily reports")
	}
	return reports, nil
}
