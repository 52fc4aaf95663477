package pages

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chronicle/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}
	db.AutoMigrate(&models.User{}, &models.Page{})
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	store := cookie.NewStore([]byte("secret"))
	router.Use(sessions.Sessions("test-session", store))

	tmpl := template.New("")
	for _, name := range []string{
		"pages_detail.html",
		"pages_form.html",
		"error_404.html",
		"error_500.html",
	} {
		template.Must(tmpl.New(name).Parse("{{.error}}"))
	}
	router.SetHTMLTemplate(tmpl)

	router.GET("/testlogin/:id", func(c *gin.Context) {
		id, _ := strconv.ParseUint(c.Param("id"), 10, 32)
		session := sessions.Default(c)
		session.Set("user_id", uint(id))
		session.Save()
		c.Status(http.StatusOK)
	})

	NewPagesModule(db).RegisterRoutes(router)
	return router
}

func loginAs(t *testing.T, router *gin.Engine, userID uint) []*http.Cookie {
	t.Helper()

	req, _ := http.NewRequest("GET", "/testlogin/"+strconv.FormatUint(uint64(userID), 10), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	return w.Result().Cookies()
}

func doRequest(router *gin.Engine, method, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req, _ = http.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createTestUser(db *gorm.DB, username string) *models.User {
	user := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	db.Create(user)
	return user
}

func TestShow(t *testing.T) {
	db := setupTestDB()
	author := createTestUser(db, "ann")
	db.Create(&models.Page{Title: "About", Content: "hello", Slug: "about", Published: true, AuthorID: author.ID})
	db.Create(&models.Page{Title: "Draft", Content: "wip", Slug: "draft", Published: false, AuthorID: author.ID})

	router := setupTestRouter(db)

	w := doRequest(router, "GET", "/pages/about/", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Unpublished pages 404 for everyone, including the author.
	w = doRequest(router, "GET", "/pages/draft/", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	cookies := loginAs(t, router, author.ID)
	w = doRequest(router, "GET", "/pages/draft/", nil, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, "GET", "/pages/missing/", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreate(t *testing.T) {
	db := setupTestDB()
	author := createTestUser(db, "ann")

	router := setupTestRouter(db)
	cookies := loginAs(t, router, author.ID)

	form := url.Values{"title": {"Site Rules"}, "content": {"Be nice."}}
	w := doRequest(router, "POST", "/pages/create/", form, cookies)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/pages/site-rules/", w.Header().Get("Location"))

	var page models.Page
	err := db.Where("slug = ?", "site-rules").First(&page).Error
	assert.NoError(t, err)
	assert.Equal(t, author.ID, page.AuthorID)
	assert.True(t, page.Published)
}

func TestCreate_DuplicateSlug(t *testing.T) {
	db := setupTestDB()
	author := createTestUser(db, "ann")
	db.Create(&models.Page{Title: "About", Content: "x", Slug: "about", Published: true, AuthorID: author.ID})

	router := setupTestRouter(db)
	cookies := loginAs(t, router, author.ID)

	form := url.Values{"title": {"About"}, "content": {"y"}, "slug": {"about"}}
	w := doRequest(router, "POST", "/pages/create/", form, cookies)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already in use")

	var count int64
	db.Model(&models.Page{}).Where("slug = ?", "about").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreate_RequiresLogin(t *testing.T) {
	db := setupTestDB()
	router := setupTestRouter(db)

	form := url.Values{"title": {"About"}, "content": {"x"}}
	w := doRequest(router, "POST", "/pages/create/", form, nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/auth/login/")
}

func TestEdit_NonOwner(t *testing.T) {
	db := setupTestDB()
	owner := createTestUser(db, "ann")
	intruder := createTestUser(db, "bob")
	db.Create(&models.Page{Title: "About", Content: "x", Slug: "about", Published: true, AuthorID: owner.ID})

	router := setupTestRouter(db)
	cookies := loginAs(t, router, intruder.ID)

	w := doRequest(router, "GET", "/pages/about/edit/", nil, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)

	form := url.Values{"title": {"Hijacked"}, "content": {"nope"}}
	w = doRequest(router, "POST", "/pages/about/edit/", form, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var unchanged models.Page
	db.Where("slug = ?", "about").First(&unchanged)
	assert.Equal(t, "About", unchanged.Title)
}

func TestEdit_Owner(t *testing.T) {
	db := setupTestDB()
	owner := createTestUser(db, "ann")
	db.Create(&models.Page{Title: "About", Content: "x", Slug: "about", Published: true, AuthorID: owner.ID})

	router := setupTestRouter(db)
	cookies := loginAs(t, router, owner.ID)

	form := url.Values{"title": {"About Us"}, "content": {"updated"}, "published": {"0"}}
	w := doRequest(router, "POST", "/pages/about/edit/", form, cookies)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/pages/about/", w.Header().Get("Location"))

	var updated models.Page
	db.Where("slug = ?", "about").First(&updated)
	assert.Equal(t, "About Us", updated.Title)
	assert.Equal(t, "updated", updated.Content)
	assert.False(t, updated.Published)
}

func TestGenerateSlug(t *testing.T) {
	assert.Equal(t, "site-rules", generateSlug("Site Rules"))
	assert.Equal(t, "hello-world", generateSlug("  Hello,  World!  "))
	assert.Equal(t, "faq-2026", generateSlug("FAQ 2026"))
	assert.Equal(t, "", generateSlug("???"))
}

func TestRenderMarkdown(t *testing.T) {
	result := renderMarkdown("A [link](https://example.com) here.")
	assert.Contains(t, result, `<a href="https://example.com"`)
}
