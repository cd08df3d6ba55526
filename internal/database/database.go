package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func Connect(dbURL string, log *zap.Logger) (*sqlx.DB, error) {
	log.Info("🔌 Connecting to database", zap.Int("url_length", len(dbURL)))

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Error("❌ Database connection failed", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Error("❌ Database ping failed", zap.Error(err))
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("✅ Database connection successful")
	return db, nil
}

func Migrate(db *sqlx.DB, log *zap.Logger) error {
	migrations := []string{
		// Route transitions confirmed by the truck document write
		`CREATE TABLE IF NOT EXISTS route_events (
			id TEXT PRIMARY KEY,
			truck_id TEXT NOT NULL,
			municipal_council TEXT NOT NULL,
			district TEXT NOT NULL,
			ward TEXT NOT NULL,
			supervisor_id TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL CHECK(to_status IN ('idle', 'active', 'paused', 'completed')),
			occurred_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_route_events_truck ON route_events(truck_id, occurred_at DESC)`,

		// Accepted GPS samples
		`CREATE TABLE IF NOT EXISTS location_samples (
			id SERIAL PRIMARY KEY,
			truck_id TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			heading DOUBLE PRECISION NOT NULL DEFAULT 0,
			speed DOUBLE PRECISION NOT NULL DEFAULT 0,
			timestamp TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_location_samples_truck ON location_samples(truck_id, created_at DESC)`,

		// Driver end-of-day reports
		`CREATE TABLE IF NOT EXISTS daily_reports (
			id TEXT PRIMARY KEY,
			truck_id TEXT NOT NULL,
			report_date TEXT NOT NULL,
			area TEXT NOT NULL,
			description TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_reports_truck ON daily_reports(truck_id, report_date DESC)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Info("✓ Database migrations completed")
	return nil
}
