package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PostEvent is a recorded visit to a post page.
type PostEvent struct {
	ID        uint   `gorm:"primary_key;autoIncrement"`
	PostID    uint   `gorm:"not null;index"`
	CookieID  string `gorm:"not null;index"`
	Event     string `gorm:"not null;default:'visit'"`
	IP        string `gorm:"not null"`
	Referer   *string
	CreatedAt time.Time `gorm:"index"`
}

// AnalyticsModule records post visits. A nil module is valid and disables
// tracking, so callers never need to guard.
type AnalyticsModule struct {
	db *gorm.DB
}

func NewAnalyticsModule(db *gorm.DB) *AnalyticsModule {
	if db == nil {
		log.Println("Analytics DB is nil, analytics will be disabled")
		return nil
	}

	if err := db.AutoMigrate(&PostEvent{}); err != nil {
		log.Printf("Error migrating post_events table: %v", err)
		return nil
	}

	log.Println("Analytics module initialized successfully")
	return &AnalyticsModule{db: db}
}

// TrackVisit records a visit to a post. Repeat visits by the same cookie
// within 30 minutes are not counted, so refreshes don't inflate numbers.
// The insert runs asynchronously and never delays the request.
func (a *AnalyticsModule) TrackVisit(c *gin.Context, postID uint) {
	if a == nil || a.db == nil {
		return
	}

	cookieID := a.getOrCreateCookieID(c)

	thirtyMinutesAgo := time.Now().Add(-30 * time.Minute)
	var recentVisit PostEvent
	err := a.db.Where("cookie_id = ? AND post_id = ? AND created_at > ?",
		cookieID, postID, thirtyMinutesAgo).
		First(&recentVisit).Error
	if err == nil {
		return
	}

	event := PostEvent{
		PostID:    postID,
		CookieID:  cookieID,
		Event:     "visit",
		IP:        a.getClientIP(c),
		Referer:   headerValue(c, "Referer"),
		CreatedAt: time.Now(),
	}

	go func() {
		if err := a.db.Create(&event).Error; err != nil {
			log.Printf("Error saving analytics event: %v", err)
		}
	}()
}

// GetPostVisitCount returns the total recorded visits for a post.
func (a *AnalyticsModule) GetPostVisitCount(postID uint) int64 {
	if a == nil || a.db == nil {
		return 0
	}

	var count int64
	a.db.Model(&PostEvent{}).Where("post_id = ?", postID).Count(&count)
	return count
}

// DayVisits is the number of visits on a specific day.
type DayVisits struct {
	Date  string
	Count int64
}

// GetVisitsByDay returns per-day visit counts for a post over the last N
// days, with zero-filled gaps.
func (a *AnalyticsModule) GetVisitsByDay(postID uint, days int) []DayVisits {
	if a == nil || a.db == nil {
		return []DayVisits{}
	}

	startDate := time.Now().AddDate(0, 0, -days)

	var results []struct {
		Date  string
		Count int64
	}
	a.db.Model(&PostEvent{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("post_id = ? AND created_at >= ?", postID, startDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&results)

	dayVisits := make([]DayVisits, days)
	for i := 0; i < days; i++ {
		date := time.Now().AddDate(0, 0, -(days - 1 - i))
		dayVisits[i] = DayVisits{Date: date.Format("2006-01-02")}
	}

	for _, result := range results {
		for i := range dayVisits {
			if dayVisits[i].Date == result.Date {
				dayVisits[i].Count = result.Count
				break
			}
		}
	}

	return dayVisits
}

func (a *AnalyticsModule) getOrCreateCookieID(c *gin.Context) string {
	cookieName := "chronicle_visitor_id"

	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}

	data := time.Now().String() + c.ClientIP() + c.Request.UserAgent()
	hash := sha256.Sum256([]byte(data))
	cookieID := hex.EncodeToString(hash[:])

	c.SetCookie(
		cookieName,
		cookieID,
		60*60*24*365*2, // 2 years
		"/",
		"",
		false,
		true,
	)

	return cookieID
}

// getClientIP resolves the client IP, looking through common proxy headers.
func (a *AnalyticsModule) getClientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		ips := strings.Split(ip, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}

	return c.ClientIP()
}

func headerValue(c *gin.Context, name string) *string {
	value := c.GetHeader(name)
	if value == "" {
		return nil
	}
	return &value
}
