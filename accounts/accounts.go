package accounts

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"chronicle/common"
	"chronicle/models"
)

type AccountsModule struct {
	db *gorm.DB
}

func NewAccountsModule(db *gorm.DB) *AccountsModule {
	return &AccountsModule{db: db}
}

func (a *AccountsModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/auth/registration/", a.registrationPage)
	router.POST("/auth/registration/", a.registrationPost)
	router.GET("/auth/login/", a.loginPage)
	router.POST("/auth/login/", a.loginPost)
	router.GET("/auth/logout/", a.logout)

	router.GET("/profile/edit/", common.RequireLogin(a.db), a.editProfilePage)
	router.POST("/profile/edit/", common.RequireLogin(a.db), a.editProfilePost)
}

func (a *AccountsModule) registrationPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get("user_id") != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.HTML(http.StatusOK, "accounts_registration.html", gin.H{})
}

func (a *AccountsModule) registrationPost(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")

	formData := gin.H{
		"username": username,
		"email":    email,
	}

	if username == "" || password == "" {
		formData["error"] = "Username and password are required"
		c.HTML(http.StatusOK, "accounts_registration.html", formData)
		return
	}

	var existingUser models.User
	if err := a.db.Where("username = ?", username).First(&existingUser).Error; err == nil {
		formData["error"] = "This username is already taken"
		c.HTML(http.StatusOK, "accounts_registration.html", formData)
		return
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		formData["error"] = "Failed to create account"
		c.HTML(http.StatusInternalServerError, "accounts_registration.html", formData)
		return
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}

	if err := a.db.Create(&user).Error; err != nil {
		formData["error"] = "Failed to create account"
		c.HTML(http.StatusInternalServerError, "accounts_registration.html", formData)
		return
	}

	// Registration logs the new user in right away.
	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func (a *AccountsModule) loginPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get("user_id") != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.HTML(http.StatusOK, "accounts_login.html", gin.H{})
}

func (a *AccountsModule) loginPost(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	var user models.User
	if err := a.db.Where("username = ?", username).First(&user).Error; err != nil {
		c.HTML(http.StatusUnauthorized, "accounts_login.html", gin.H{
			"error":    "Incorrect username or password",
			"username": username,
		})
		return
	}

	if !checkPasswordHash(password, user.PasswordHash) {
		c.HTML(http.StatusUnauthorized, "accounts_login.html", gin.H{
			"error":    "Incorrect username or password",
			"username": username,
		})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func (a *AccountsModule) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func (a *AccountsModule) editProfilePage(c *gin.Context) {
	viewer := common.CurrentUser(c, a.db)
	if viewer == nil {
		c.Redirect(http.StatusFound, "/auth/login/")
		return
	}

	c.HTML(http.StatusOK, "accounts_edit_profile.html", gin.H{
		"viewer": viewer,
	})
}

func (a *AccountsModule) editProfilePost(c *gin.Context) {
	viewer := common.CurrentUser(c, a.db)
	if viewer == nil {
		c.Redirect(http.StatusFound, "/auth/login/")
		return
	}

	viewer.FirstName = c.PostForm("first_name")
	viewer.LastName = c.PostForm("last_name")
	if email := c.PostForm("email"); email != "" {
		viewer.Email = email
	}

	if err := a.db.Save(viewer).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "accounts_edit_profile.html", gin.H{
			"error":  "Failed to save profile",
			"viewer": viewer,
		})
		return
	}

	c.Redirect(http.StatusFound, "/profile/"+viewer.Username+"/")
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
