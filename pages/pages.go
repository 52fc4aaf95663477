package pages

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gorm.io/gorm"

	"chronicle/common"
	"chronicle/models"
)

type PagesModule struct {
	db *gorm.DB
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Linkify),
)

func NewPagesModule(db *gorm.DB) *PagesModule {
	return &PagesModule{db: db}
}

func (p *PagesModule) RegisterRoutes(router *gin.Engine) {
	pagesGroup := router.Group("/pages")
	{
		requireLogin := common.RequireLogin(p.db)
		pagesGroup.GET("/create/", requireLogin, p.createPage)
		pagesGroup.POST("/create/", requireLogin, p.createPost)
		pagesGroup.GET("/:slug/", p.show)
		pagesGroup.GET("/:slug/edit/", requireLogin, p.editPage)
		pagesGroup.POST("/:slug/edit/", requireLogin, p.editPost)
	}
}

// show renders a published page. There is no author bypass on read:
// unpublished pages 404 even for their author.
func (p *PagesModule) show(c *gin.Context) {
	slug := c.Param("slug")

	var page models.Page
	if err := p.db.Where("slug = ?", slug).First(&page).Error; err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Page not found"})
		return
	}

	if !page.Published {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Page not found"})
		return
	}

	c.HTML(http.StatusOK, "pages_detail.html", gin.H{
		"page":        page,
		"contentHTML": template.HTML(renderMarkdown(page.Content)),
		"viewer":      common.CurrentUser(c, p.db),
	})
}

func (p *PagesModule) createPage(c *gin.Context) {
	c.HTML(http.StatusOK, "pages_form.html", gin.H{
		"viewer": common.CurrentUser(c, p.db),
	})
}

func (p *PagesModule) createPost(c *gin.Context) {
	viewer := common.CurrentUser(c, p.db)

	title := c.PostForm("title")
	content := c.PostForm("content")
	slug := c.PostForm("slug")
	if slug == "" {
		slug = generateSlug(title)
	}

	formData := gin.H{
		"title":   title,
		"content": content,
		"slug":    slug,
		"viewer":  viewer,
	}

	if title == "" || content == "" {
		formData["error"] = "Title and content are required"
		c.HTML(http.StatusOK, "pages_form.html", formData)
		return
	}

	var existing models.Page
	if err := p.db.Where("slug = ?", slug).First(&existing).Error; err == nil {
		formData["error"] = "This slug is already in use"
		c.HTML(http.StatusOK, "pages_form.html", formData)
		return
	}

	page := models.Page{
		Title:     title,
		Content:   content,
		Slug:      slug,
		Published: c.PostForm("published") != "0",
		AuthorID:  viewer.ID,
		CreatedAt: time.Now(),
	}

	if err := p.db.Create(&page).Error; err != nil {
		formData["error"] = "Failed to create page"
		c.HTML(http.StatusInternalServerError, "pages_form.html", formData)
		return
	}

	c.Redirect(http.StatusFound, "/pages/"+page.Slug+"/")
}

func (p *PagesModule) editPage(c *gin.Context) {
	viewer := common.CurrentUser(c, p.db)

	var page models.Page
	if err := p.db.Where("slug = ? AND author_id = ?", c.Param("slug"), viewer.ID).
		First(&page).Error; err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Page not found"})
		return
	}

	c.HTML(http.StatusOK, "pages_form.html", gin.H{
		"page":   page,
		"viewer": viewer,
	})
}

func (p *PagesModule) editPost(c *gin.Context) {
	viewer := common.CurrentUser(c, p.db)

	var page models.Page
	if err := p.db.Where("slug = ? AND author_id = ?", c.Param("slug"), viewer.ID).
		First(&page).Error; err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Page not found"})
		return
	}

	title := c.PostForm("title")
	content := c.PostForm("content")
	if title == "" || content == "" {
		c.HTML(http.StatusOK, "pages_form.html", gin.H{
			"page":   page,
			"error":  "Title and content are required",
			"viewer": viewer,
		})
		return
	}

	page.Title = title
	page.Content = content
	page.Published = c.PostForm("published") != "0"

	if err := p.db.Save(&page).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to update page",
		})
		return
	}

	c.Redirect(http.StatusFound, "/pages/"+page.Slug+"/")
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return content
	}
	return buf.String()
}

func generateSlug(title string) string {
	slug := strings.ToLower(title)
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		if r == ' ' {
			return '-'
		}
		return -1
	}, slug)

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return slug
}
