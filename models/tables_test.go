package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&User{}, &Category{}, &Location{}, &Post{}, &Comment{}, &Page{}))
	return db
}

// An explicit false on Published must survive the insert. A gorm default
// tag on the column would silently override the zero value, turning every
// draft into a published entity.
func TestPublishedFalsePersists(t *testing.T) {
	db := setupTestDB(t)

	post := Post{Title: "Draft", Text: "wip", PubDate: time.Now(), AuthorID: 1, Published: false}
	assert.NoError(t, db.Create(&post).Error)
	var reloadedPost Post
	db.First(&reloadedPost, post.ID)
	assert.False(t, reloadedPost.Published)

	category := Category{Title: "Hidden", Slug: "hidden", Published: false}
	assert.NoError(t, db.Create(&category).Error)
	var reloadedCategory Category
	db.First(&reloadedCategory, category.ID)
	assert.False(t, reloadedCategory.Published)

	location := Location{Name: "Nowhere", Published: false}
	assert.NoError(t, db.Create(&location).Error)
	var reloadedLocation Location
	db.First(&reloadedLocation, location.ID)
	assert.False(t, reloadedLocation.Published)

	page := Page{Title: "Draft", Content: "wip", Slug: "draft", Published: false, AuthorID: 1}
	assert.NoError(t, db.Create(&page).Error)
	var reloadedPage Page
	db.First(&reloadedPage, page.ID)
	assert.False(t, reloadedPage.Published)
}

func TestPublishedTruePersists(t *testing.T) {
	db := setupTestDB(t)

	post := Post{Title: "Live", Text: "out", PubDate: time.Now(), AuthorID: 1, Published: true}
	assert.NoError(t, db.Create(&post).Error)

	var reloaded Post
	db.First(&reloaded, post.ID)
	assert.True(t, reloaded.Published)
}
