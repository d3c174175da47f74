package main

import (
	"log"
	"os"

	"couple-summary-be/internal/model"
	"couple-summary-be/pkg/database"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, database.WithLogLevel(logger.Info))
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up Extensions...")
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.PairSession{},
		&model.Response{},
		&model.Purchase{},
		&model.AiCoupleSummary{},
		&model.AiSummary{},
		&model.AiGenerationEvent{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 3. Post-Migration: stub metrics function for databases that lack the real one.
	log.Println("Step 3: Creating Functions...")
	postMigrationSQL := []string{
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_proc WHERE proname = 'get_session_compatibility_metrics') THEN
		    CREATE FUNCTION get_session_compatibility_metrics(p_session_id uuid) RETURNS jsonb
		    LANGUAGE sql STABLE AS 'SELECT NULL::jsonb';
		  END IF;
		END $$;`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
