package database

import (
	"log"
	"time"

	"chronicle/models"

	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Location{},
		&models.Post{},
		&models.Comment{},
		&models.Page{},
	)

	if err != nil {
		log.Printf("Error running migrations: %v", err)
		return err
	}

	if err := seedDefaultPages(db); err != nil {
		log.Printf("Error seeding default pages: %v", err)
		return err
	}

	log.Println("Migrations completed successfully")
	return nil
}

// seedDefaultPages creates the about and rules pages when they are missing,
// so the /pages/about/ and /pages/rules/ routes resolve on a fresh database.
func seedDefaultPages(db *gorm.DB) error {
	defaults := []models.Page{
		{
			Title:     "About",
			Slug:      "about",
			Content:   "# About\n\nChronicle is a place to publish and discuss posts.",
			Published: true,
			CreatedAt: time.Now(),
		},
		{
			Title:     "Rules",
			Slug:      "rules",
			Content:   "# Rules\n\nBe kind. Stay on topic.",
			Published: true,
			CreatedAt: time.Now(),
		},
	}

	for _, page := range defaults {
		var existing models.Page
		err := db.Where("slug = ?", page.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.Create(&page).Error; err != nil {
			return err
		}
	}

	return nil
}
