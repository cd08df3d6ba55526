package main

import (
	"fmt"
	"os"

	"vatelanka-driver/internal/database"
	"vatelanka-driver/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Runs the journal migrations without the rest of the agent's configuration
func main() {
	envErr := godotenv.Load()
	if err := logger.Init(os.Getenv("APP_ENV")); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Named("migrate")

	if envErr != nil {
		log.Info("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(dbURL, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db, log); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	var result struct {
		RouteEvents     int `db:"route_events"`
		LocationSamples int `db:"location_samples"`
		DailyReports    int `db:"daily_reports"`
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM route_events) AS route_events,
			(SELECT COUNT(*) FROM location_samples) AS location_samples,
			(SELECT COUNT(*) FROM daily_reports) AS daily_reports
	`
	if err := db.Get(&result, query); err != nil {
		log.Fatal("Failed to query summary", zap.Error(err))
	}

	fmt.Println("\n============================================================")
	fmt.Println("JOURNAL SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Route events:            %d\n", result.RouteEvents)
	fmt.Printf("Location samples:        %d\n", result.LocationSamples)
	fmt.Printf("Daily reports:           %d\n", result.DailyReports)
	fmt.Println("============================================================")
}
