package models

import "time"

type User struct {
	ID           uint   `gorm:"primary_key;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null;index" json:"username"`
	Email        string `gorm:"not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"` // json:"-" prevents password from being exposed in API
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

type Category struct {
	ID          uint      `gorm:"primary_key;autoIncrement" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Slug        string    `gorm:"unique;not null;index" json:"slug"`
	Published   bool      `json:"published"` // no db default: a default tag would override false on insert
	CreatedAt   time.Time `json:"created_at"`
}

type Location struct {
	ID        uint      `gorm:"primary_key;autoIncrement" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
}

type Post struct {
	ID         uint      `gorm:"primary_key;autoIncrement" json:"id"`
	Title      string    `gorm:"not null" json:"title"`
	Text       string    `gorm:"type:text" json:"text"`
	PubDate    time.Time `gorm:"not null;index" json:"pub_date"` // future dates mean scheduled publication
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Author     User      `json:"author"`
	CategoryID *uint     `gorm:"index" json:"category_id,omitempty"` // nulled when the category is deleted
	Category   *Category `json:"category,omitempty"`
	LocationID *uint     `gorm:"index" json:"location_id,omitempty"` // nulled when the location is deleted
	Location   *Location `json:"location,omitempty"`
	Published  bool      `json:"published"`
	Image      string    `json:"image,omitempty"` // stored path under the upload dir, empty when none
	CreatedAt  time.Time `json:"created_at"`
}

type Comment struct {
	ID        uint      `gorm:"primary_key;autoIncrement" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"` // removed together with the post
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `json:"author"`
	Text      string    `gorm:"type:text" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Page struct {
	ID        uint      `gorm:"primary_key;autoIncrement" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	Slug      string    `gorm:"unique;not null;index" json:"slug"`
	Published bool      `json:"published"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}
