package blog

import (
	"bytes"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"

	"chronicle/analytics"
	"chronicle/common"
	emailpkg "chronicle/email"
	"chronicle/models"
)

type BlogModule struct {
	db        *gorm.DB
	analytics *analytics.AnalyticsModule
}

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,     // tables, strikethrough, task lists, autolinks (GFM set)
		extension.Linkify, // linkify raw URLs
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(), // allow raw HTML passthrough in Markdown
	),
)

func NewBlogModule(db *gorm.DB, analyticsModule *analytics.AnalyticsModule) *BlogModule {
	return &BlogModule{
		db:        db,
		analytics: analyticsModule,
	}
}

func (b *BlogModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", b.index)
	router.GET("/posts/:id/", b.postDetail)
	router.GET("/category/:slug/", b.categoryPosts)
	router.GET("/profile/:username/", b.profile)

	authGroup := router.Group("/posts")
	authGroup.Use(common.RequireLogin(b.db))
	{
		authGroup.GET("/create/", b.createPostPage)
		authGroup.POST("/create/", b.createPost)
		authGroup.GET("/:id/edit/", b.editPostPage)
		authGroup.POST("/:id/edit/", b.editPost)
		authGroup.GET("/:id/delete/", b.deletePostPage)
		authGroup.POST("/:id/delete/", b.deletePost)
		authGroup.POST("/:id/comment/", b.addComment)
		authGroup.GET("/:id/edit_comment/:cid/", b.editCommentPage)
		authGroup.POST("/:id/edit_comment/:cid/", b.editComment)
		authGroup.GET("/:id/delete_comment/:cid/", b.deleteCommentPage)
		authGroup.POST("/:id/delete_comment/:cid/", b.deleteComment)
	}
}

func (b *BlogModule) index(c *gin.Context) {
	var candidates []models.Post
	if err := b.db.Preload("Category").Preload("Author").
		Order("pub_date DESC").
		Find(&candidates).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to load posts",
		})
		return
	}

	viewer := common.CurrentUser(c, b.db)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	items, pagination := ComposeFeed(b.db, candidates, FeedOptions{
		Viewer: viewer,
		Page:   page,
	})

	c.HTML(http.StatusOK, "blog_index.html", gin.H{
		"posts":      items,
		"pagination": pagination,
		"viewer":     viewer,
	})
}

func (b *BlogModule) postDetail(c *gin.Context) {
	postID := c.Param("id")
	viewer := common.CurrentUser(c, b.db)

	var post models.Post
	if err := b.db.Preload("Category").Preload("Location").Preload("Author").
		First(&post, "id = ?", postID).Error; err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Post not found"})
		return
	}

	if !PostVisible(&post, viewer, time.Now()) {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Post not found"})
		return
	}

	var comments []models.Comment
	if err := b.db.Preload("Author").
		Where("post_id = ?", post.ID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to load comments",
		})
		return
	}

	b.analytics.TrackVisit(c, post.ID)

	c.HTML(http.StatusOK, "blog_detail.html", gin.H{
		"post":     post,
		"textHTML": template.HTML(renderMarkdown(post.Text)),
		"comments": comments,
		"viewer":   viewer,
	})
}

func (b *BlogModule) categoryPosts(c *gin.Context) {
	slug := c.Param("slug")

	var category models.Category
	if err := b.db.Where("slug = ? AND published = ?", slug, true).
		First(&category).Error; err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Category not found"})
		return
	}

	var candidates []models.Post
	if err := b.db.Preload("Category").Preload("Author").
		Where("category_id = ?", category.ID).
		Order("pub_date DESC").
		Find(&candidates).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to load posts",
		})
		return
	}

	viewer := common.CurrentUser(c, b.db)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	items, pagination := ComposeFeed(b.db, candidates, FeedOptions{
		Viewer: viewer,
		Page:   page,
	})

	c.HTML(http.StatusOK, "blog_category.html", gin.H{
		"category":   category,
		"posts":      items,
		"pagination": pagination,
		"viewer":     viewer,
	})
}

func (b *BlogModule) profile(c *gin.Context) {
	username := c.Param("username")

	var profile models.User
	if err := b.db.Where("username = ?", username).First(&profile).Error; err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "User not found"})
		return
	}

	var candidates []models.Post
	if err := b.db.Preload("Category").Preload("Author").
		Where("author_id = ?", profile.ID).
		Order("pub_date DESC").
		Find(&candidates).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to load posts",
		})
		return
	}

	viewer := common.CurrentUser(c, b.db)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	items, pagination := ComposeFeed(b.db, candidates, FeedOptions{
		Viewer:     viewer,
		Page:       page,
		IncludeOwn: viewer != nil && viewer.ID == profile.ID,
	})

	c.HTML(http.StatusOK, "blog_profile.html", gin.H{
		"profile":    profile,
		"posts":      items,
		"pagination": pagination,
		"viewer":     viewer,
	})
}

func (b *BlogModule) createPostPage(c *gin.Context) {
	viewer := common.CurrentUser(c, b.db)

	c.HTML(http.StatusOK, "blog_post_form.html", gin.H{
		"viewer":     viewer,
		"categories": b.publishedCategories(),
		"locations":  b.publishedLocations(),
	})
}

func (b *BlogModule) createPost(c *gin.Context) {
	viewer := common.CurrentUser(c, b.db)

	title := c.PostForm("title")
	text := c.PostForm("text")
	formData := gin.H{
		"title":      title,
		"text":       text,
		"viewer":     viewer,
		"categories": b.publishedCategories(),
		"locations":  b.publishedLocations(),
	}

	if title == "" || text == "" {
		formData["error"] = "Title and text are required"
		c.HTML(http.StatusOK, "blog_post_form.html", formData)
		return
	}

	pubDate, err := parsePubDate(c.PostForm("pub_date"))
	if err != nil {
		formData["error"] = "Invalid publication date"
		c.HTML(http.StatusOK, "blog_post_form.html", formData)
		return
	}

	imagePath, err := saveUploadedImage(c)
	if err != nil {
		formData["error"] = "Failed to store image: " + err.Error()
		c.HTML(http.StatusOK, "blog_post_form.html", formData)
		return
	}

	post := models.Post{
		Title:      title,
		Text:       text,
		PubDate:    pubDate,
		AuthorID:   viewer.ID,
		CategoryID: parseOptionalID(c.PostForm("category_id")),
		LocationID: parseOptionalID(c.PostForm("location_id")),
		Published:  c.PostForm("published") != "0",
		Image:      imagePath,
		CreatedAt:  time.Now(),
	}

	if err := b.db.Create(&post).Error; err != nil {
		formData["error"] = "Failed to create post"
		c.HTML(http.StatusInternalServerError, "blog_post_form.html", formData)
		return
	}

	// Best-effort notification: failures are logged, never retried, and
	// never block the request.
	go func(to, username, title string) {
		emailService := emailpkg.NewEmailService()
		if err := emailService.SendPostNotification(to, username, title); err != nil {
			log.Printf("Failed to send post notification to %s: %v", to, err)
		}
	}(viewer.Email, viewer.Username, post.Title)

	c.Redirect(http.StatusFound, "/profile/"+viewer.Username+"/")
}

func (b *BlogModule) editPostPage(c *gin.Context) {
	viewer := common.CurrentUser(c, b.db)
	postID := c.Param("id")

	var post models.Post
	if err := b.db.Where("id = ? AND author_id = ?", postID, viewer.ID).
		First(&post).Error; err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Post not found"})
		return
	}

	c.HTML(http.StatusOK, "blog_post_form.html", gin.H{
		"post":        post,
		"viewer":      viewer,
		"categories":  b.publishedCategories(),
		"locations":   b.publishedLocations(),
		"visitCount":  b.analytics.GetPostVisitCount(post.ID),
		"visitsByDay": b.analytics.GetVisitsByDay(post.ID, 14),
	})
}

func (b *BlogModule) editPost(c *gin.Context) {
	viewer := common.CurrentUser(c, b.db)
	postID := c.Param("id")

	var post models.Post
	if err := b.db.Where("id = ? AND author_id = ?", postID, viewer.ID).
		First(&post).Error; err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Post not found"})
		return
	}

	title := c.PostForm("title")
	text := c.PostForm("text")
	formData := gin.H{
		"post":       post,
		"viewer":     viewer,
		"categories": b.publishedCategories(),
		"locations":  b.publishedLocations(),
	}

	if title == "" || text == "" {
		formData["error"] = "Title and text are required"
		c.HTML(http.StatusOK, "blog_post_form.html", formData)
		return
	}

	pubDate, err := parsePubDate(c.PostForm("pub_date"))
	if err != nil {
		formData["error"] = "Invalid publication date"
		c.HTML(http.StatusOK, "blog_post_form.html", formData)
		return
	}

	imagePath, err := saveUploadedImage(c)
	if err != nil {
		formData["error"] = "Failed to store image: " + err.Error()
		c.HTML(http.StatusOK, "blog_post_form.html", formData)
		return
	}
	if imagePath != "" {
		post.Image = imagePath
	}

	post.Title = title
	post.Text = text
	post.PubDate = pubDate
	post.CategoryID = parseOptionalID(c.PostForm("category_id"))
	post.LocationID = parseOptionalID(c.PostForm("location_id"))
	post.Published = c.PostForm("published") != "0"

	if err := b.db.Save(&post).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to update post",
		})
		return
	}

	c.Redirect(http.StatusFound, "/posts/"+postID+"/")
}

func (b *BlogModule) deletePostPage(c *gin.Context) {
	viewer := common.CurrentUser(c, b.db)
	postID := c.Param("id")

	var post models.Post
	if err := b.db.Where("id = ? AND author_id = ?", postID, viewer.ID).
		First(&post).Error; err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Post not found"})
		return
	}

	c.HTML(http.StatusOK, "blog_post_confirm_delete.html", gin.H{
		"post":   post,
		"viewer": viewer,
	})
}

func (b *BlogModule) deletePost(c *gin.Context) {
	viewer := common.CurrentUser(c, b.db)
	postID := c.Param("id")

	var post models.Post
	if err := b.db.Where("id = ? AND author_id = ?", postID, viewer.ID).
		First(&post).Error; err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Post not found"})
		return
	}

	// Comments cannot outlive their post. FK constraints are disabled at
	// migration, so the cascade is explicit.
	if err := b.db.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to delete post",
		})
		return
	}
	if err := b.db.Delete(&post).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to delete post",
		})
		return
	}

	c.Redirect(http.StatusFound, "/profile/"+viewer.Username+"/")
}

func (b *BlogModule) addComment(c *gin.Context) {
	viewer := common.CurrentUser(c, b.db)
	postID := c.Param("id")

	var post models.Post
	if err := b.db.Preload("Category").First(&post, "id = ?", postID).Error; err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Post not found"})
		return
	}
	if !PostVisible(&post, viewer, time.Now()) {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Post not found"})
		return
	}

	text := c.PostForm("text")
	if text == "" {
		c.HTML(http.StatusOK, "blog_comment_form.html", gin.H{
			"post":   post,
			"error":  "Comment text is required",
			"viewer": viewer,
		})
		return
	}

	comment := models.Comment{
		PostID:    post.ID,
		AuthorID:  viewer.ID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if err := b.db.Create(&comment).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to add comment",
		})
		return
	}

	c.Redirect(http.StatusFound, "/posts/"+postID+"/")
}

// lookupOwnComment fetches a comment scoped by post and author. Ownership
// mismatches surface as not-found, uniformly with post mutations.
func (b *BlogModule) lookupOwnComment(c *gin.Context, viewer *models.User) (*models.Comment, bool) {
	var comment models.Comment
	err := b.db.Where("id = ? AND post_id = ? AND author_id = ?",
		c.Param("cid"), c.Param("id"), viewer.ID).
		First(&comment).Error
	if err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Comment not found"})
		return nil, false
	}
	return &comment, true
}

func (b *BlogModule) editCommentPage(c *gin.Context) {
	viewer := common.CurrentUser(c, b.db)
	comment, ok := b.lookupOwnComment(c, viewer)
	if !ok {
		return
	}

	c.HTML(http.StatusOK, "blog_comment_form.html", gin.H{
		"comment": comment,
		"viewer":  viewer,
	})
}

func (b *BlogModule) editComment(c *gin.Context) {
	viewer := common.CurrentUser(c, b.db)
	comment, ok := b.lookupOwnComment(c, viewer)
	if !ok {
		return
	}

	text := c.PostForm("text")
	if text == "" {
		c.HTML(http.StatusOK, "blog_comment_form.html", gin.H{
			"comment": comment,
			"error":   "Comment text is required",
			"viewer":  viewer,
		})
		return
	}

	comment.Text = text
	if err := b.db.Save(comment).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to update comment",
		})
		return
	}

	c.Redirect(http.StatusFound, "/posts/"+c.Param("id")+"/")
}

func (b *BlogModule) deleteCommentPage(c *gin.Context) {
	viewer := common.CurrentUser(c, b.db)
	comment, ok := b.lookupOwnComment(c, viewer)
	if !ok {
		return
	}

	c.HTML(http.StatusOK, "blog_comment_confirm_delete.html", gin.H{
		"comment": comment,
		"viewer":  viewer,
	})
}

func (b *BlogModule) deleteComment(c *gin.Context) {
	viewer := common.CurrentUser(c, b.db)
	comment, ok := b.lookupOwnComment(c, viewer)
	if !ok {
		return
	}

	if err := b.db.Delete(comment).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to delete comment",
		})
		return
	}

	c.Redirect(http.StatusFound, "/posts/"+c.Param("id")+"/")
}

func (b *BlogModule) publishedCategories() []models.Category {
	var categories []models.Category
	b.db.Where("published = ?", true).Order("title ASC").Find(&categories)
	return categories
}

func (b *BlogModule) publishedLocations() []models.Location {
	var locations []models.Location
	b.db.Where("published = ?", true).Order("name ASC").Find(&locations)
	return locations
}

// parsePubDate reads the datetime-local form value. Empty means publish now.
func parsePubDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	return time.ParseInLocation("2006-01-02T15:04", value, time.Local)
}

func parseOptionalID(value string) *uint {
	if value == "" {
		return nil
	}
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return nil
	}
	uid := uint(id)
	return &uid
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		// On failure, fall back to the raw content so the page still renders
		return content
	}
	return buf.String()
}
