package common

import (
	"log"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func ConnectDb() *gorm.DB {
	dbFile := os.Getenv("sqlite_db")
	log.Println("attemptConnectDb: sqlite_db from env (raw):", dbFile)
	if dbFile == "" {
		log.Println("sqlite_db not set")
		return nil
	}

	db, err := gorm.Open(sqlite.Open(dbFile), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Println("Error opening sqlite db: " + err.Error())
		return nil
	}
	log.Println("opened sqlite db at:", dbFile)
	return db
}

// ConnectAnalyticsDb opens the separate analytics database. Returns nil
// when analytics_db is unset; the caller falls back to the primary
// database, so events land there unless a separate file is configured.
func ConnectAnalyticsDb() *gorm.DB {
	analyticsDbFile := os.Getenv("analytics_db")
	log.Println("attemptConnectAnalyticsDb: analytics_db from env (raw):", analyticsDbFile)

	if analyticsDbFile == "" {
		log.Println("analytics_db not set - events will use the primary database")
		return nil
	}

	db, err := gorm.Open(sqlite.Open(analyticsDbFile), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Println("Error opening analytics sqlite db: " + err.Error())
		return nil
	}

	log.Println("opened analytics sqlite db at:", analyticsDbFile)
	return db
}
