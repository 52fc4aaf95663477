package analytics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestModule(t *testing.T) *AnalyticsModule {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)

	module := NewAnalyticsModule(db)
	assert.NotNil(t, module)
	return module
}

func testContext(cookies ...*http.Cookie) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/posts/1/", nil)
	for _, cookie := range cookies {
		c.Request.AddCookie(cookie)
	}
	return c, w
}

func TestNilModuleIsSafe(t *testing.T) {
	var module *AnalyticsModule

	c, _ := testContext()
	module.TrackVisit(c, 1)

	assert.Equal(t, int64(0), module.GetPostVisitCount(1))
	assert.Empty(t, module.GetVisitsByDay(1, 7))
}

func TestTrackVisit(t *testing.T) {
	module := setupTestModule(t)

	c, w := testContext()
	module.TrackVisit(c, 42)

	// A visitor cookie is issued on first contact.
	assert.Contains(t, w.Header().Get("Set-Cookie"), "chronicle_visitor_id")

	// The insert is asynchronous.
	assert.Eventually(t, func() bool {
		return module.GetPostVisitCount(42) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTrackVisit_ThrottlesRepeatVisits(t *testing.T) {
	module := setupTestModule(t)

	visitor := &http.Cookie{Name: "chronicle_visitor_id", Value: "abc123"}
	module.db.Create(&PostEvent{
		PostID:    42,
		CookieID:  "abc123",
		Event:     "visit",
		IP:        "127.0.0.1",
		CreatedAt: time.Now().Add(-5 * time.Minute),
	})

	c, _ := testContext(visitor)
	module.TrackVisit(c, 42)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), module.GetPostVisitCount(42))
}

func TestTrackVisit_CountsAfterThrottleWindow(t *testing.T) {
	module := setupTestModule(t)

	visitor := &http.Cookie{Name: "chronicle_visitor_id", Value: "abc123"}
	module.db.Create(&PostEvent{
		PostID:    42,
		CookieID:  "abc123",
		Event:     "visit",
		IP:        "127.0.0.1",
		CreatedAt: time.Now().Add(-2 * time.Hour),
	})

	c, _ := testContext(visitor)
	module.TrackVisit(c, 42)

	assert.Eventually(t, func() bool {
		return module.GetPostVisitCount(42) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetVisitsByDay(t *testing.T) {
	module := setupTestModule(t)

	module.db.Create(&PostEvent{PostID: 7, CookieID: "a", Event: "visit", IP: "1.1.1.1", CreatedAt: time.Now()})
	module.db.Create(&PostEvent{PostID: 7, CookieID: "b", Event: "visit", IP: "1.1.1.2", CreatedAt: time.Now()})

	visits := module.GetVisitsByDay(7, 7)
	assert.Len(t, visits, 7)

	today := visits[len(visits)-1]
	assert.Equal(t, time.Now().Format("2006-01-02"), today.Date)
	assert.Equal(t, int64(2), today.Count)

	// Days without visits are zero-filled.
	assert.Equal(t, int64(0), visits[0].Count)
}

func TestGetClientIP(t *testing.T) {
	module := setupTestModule(t)

	c, _ := testContext()
	c.Request.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", module.getClientIP(c))

	c, _ = testContext()
	c.Request.Header.Set("X-Real-IP", "203.0.113.10")
	assert.Equal(t, "203.0.113.10", module.getClientIP(c))
}
