package admin

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chronicle/common"
	"chronicle/models"
)

// AdminModule manages categories and locations. Access is restricted to
// staff users, identified by the STAFF_EMAILS env list.
type AdminModule struct {
	db *gorm.DB
}

func NewAdminModule(db *gorm.DB) *AdminModule {
	return &AdminModule{db: db}
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine) {
	adminGroup := router.Group("/admin")
	adminGroup.Use(common.RequireLogin(a.db), a.requireStaff)
	{
		adminGroup.GET("/", a.index)
		adminGroup.GET("/categories/create/", a.newCategory)
		adminGroup.POST("/categories/create/", a.createCategory)
		adminGroup.GET("/categories/:id/edit/", a.editCategoryPage)
		adminGroup.POST("/categories/:id/edit/", a.editCategory)
		adminGroup.POST("/categories/:id/toggle/", a.toggleCategory)
		adminGroup.POST("/categories/:id/delete/", a.deleteCategory)
		adminGroup.GET("/locations/create/", a.newLocation)
		adminGroup.POST("/locations/create/", a.createLocation)
		adminGroup.POST("/locations/:id/toggle/", a.toggleLocation)
		adminGroup.POST("/locations/:id/delete/", a.deleteLocation)
	}
}

func (a *AdminModule) requireStaff(c *gin.Context) {
	user := common.CurrentUser(c, a.db)
	if user == nil {
		c.Redirect(http.StatusFound, "/auth/login/")
		c.Abort()
		return
	}

	if !isStaffEmail(user.Email) {
		c.HTML(http.StatusForbidden, "error_403.html", gin.H{
			"error": "Access denied",
		})
		c.Abort()
		return
	}

	c.Next()
}

func isStaffEmail(email string) bool {
	staffEmails := os.Getenv("STAFF_EMAILS")
	if staffEmails == "" {
		return false
	}

	for _, e := range strings.Split(staffEmails, ",") {
		if strings.TrimSpace(e) == email {
			return true
		}
	}
	return false
}

func (a *AdminModule) index(c *gin.Context) {
	var categories []models.Category
	if err := a.db.Order("title ASC").Find(&categories).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to load categories",
		})
		return
	}

	var locations []models.Location
	if err := a.db.Order("name ASC").Find(&locations).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to load locations",
		})
		return
	}

	c.HTML(http.StatusOK, "admin_index.html", gin.H{
		"categories": categories,
		"locations":  locations,
	})
}

func (a *AdminModule) newCategory(c *gin.Context) {
	c.HTML(http.StatusOK, "admin_category_form.html", gin.H{})
}

func (a *AdminModule) createCategory(c *gin.Context) {
	title := c.PostForm("title")
	slug := c.PostForm("slug")

	formData := gin.H{
		"title":       title,
		"slug":        slug,
		"description": c.PostForm("description"),
	}

	if title == "" || slug == "" {
		formData["error"] = "Title and slug are required"
		c.HTML(http.StatusOK, "admin_category_form.html", formData)
		return
	}

	var existing models.Category
	if err := a.db.Where("slug = ?", slug).First(&existing).Error; err == nil {
		formData["error"] = "This slug is already in use"
		c.HTML(http.StatusOK, "admin_category_form.html", formData)
		return
	}

	category := models.Category{
		Title:       title,
		Description: c.PostForm("description"),
		Slug:        slug,
		Published:   c.PostForm("published") != "0",
		CreatedAt:   time.Now(),
	}

	if err := a.db.Create(&category).Error; err != nil {
		formData["error"] = "Failed to create category"
		c.HTML(http.StatusInternalServerError, "admin_category_form.html", formData)
		return
	}

	c.Redirect(http.StatusFound, "/admin/")
}

func (a *AdminModule) editCategoryPage(c *gin.Context) {
	var category models.Category
	if err := a.db.First(&category, "id = ?", c.Param("id")).Error; err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Category not found"})
		return
	}

	c.HTML(http.StatusOK, "admin_category_form.html", gin.H{
		"category": category,
	})
}

func (a *AdminModule) editCategory(c *gin.Context) {
	var category models.Category
	if err := a.db.First(&category, "id = ?", c.Param("id")).Error; err != nil {
		c.HTML(http.StatusNotFound, "error_404.html", gin.H{"error": "Category not found"})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		c.HTML(http.StatusOK, "admin_category_form.html", gin.H{
			"category": category,
			"error":    "Title is required",
		})
		return
	}

	category.Title = title
	category.Description = c.PostForm("description")
	category.Published = c.PostForm("published") != "0"

	if err := a.db.Save(&category).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "error_500.html", gin.H{
			"error": "Failed to update category",
		})
		return
	}

	c.Redirect(http.StatusFound, "/admin/")
}

func (a *AdminModule) toggleCategory(c *gin.Context) {
	var category models.Category
	if err := a.db.First(&category, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	category.Published = !category.Published
	if err := a.db.Save(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}

	c.Redirect(http.StatusFound, "/admin/")
}

// deleteCategory removes a category. Posts referencing it keep existing
// with a null category; deletion never cascades to posts.
func (a *AdminModule) deleteCategory(c *gin.Context) {
	var category models.Category
	if err := a.db.First(&category, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	if err := a.db.Model(&models.Post{}).
		Where("category_id = ?", category.ID).
		Update("category_id", nil).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to detach posts"})
		return
	}

	if err := a.db.Delete(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}

	c.Redirect(http.StatusFound, "/admin/")
}

func (a *AdminModule) newLocation(c *gin.Context) {
	c.HTML(http.StatusOK, "admin_location_form.html", gin.H{})
}

func (a *AdminModule) createLocation(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		c.HTML(http.StatusOK, "admin_location_form.html", gin.H{
			"error": "Name is required",
		})
		return
	}

	location := models.Location{
		Name:      name,
		Published: c.PostForm("published") != "0",
		CreatedAt: time.Now(),
	}

	if err := a.db.Create(&location).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "admin_location_form.html", gin.H{
			"error": "Failed to create location",
			"name":  name,
		})
		return
	}

	c.Redirect(http.StatusFound, "/admin/")
}

func (a *AdminModule) toggleLocation(c *gin.Context) {
	var location models.Location
	if err := a.db.First(&location, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Location not found"})
		return
	}

	location.Published = !location.Published
	if err := a.db.Save(&location).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update location"})
		return
	}

	c.Redirect(http.StatusFound, "/admin/")
}

// deleteLocation removes a location, nulling the reference on any posts.
func (a *AdminModule) deleteLocation(c *gin.Context) {
	var location models.Location
	if err := a.db.First(&location, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Location not found"})
		return
	}

	if err := a.db.Model(&models.Post{}).
		Where("location_id = ?", location.ID).
		Update("location_id", nil).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to detach posts"})
		return
	}

	if err := a.db.Delete(&location).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete location"})
		return
	}

	c.Redirect(http.StatusFound, "/admin/")
}
