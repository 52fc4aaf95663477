package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"chronicle/accounts"
	"chronicle/admin"
	"chronicle/analytics"
	"chronicle/blog"
	"chronicle/common"
	"chronicle/database"
	"chronicle/pages"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	db := common.ConnectDb()
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	analyticsDb := common.ConnectAnalyticsDb()
	if analyticsDb == nil {
		analyticsDb = db
	}
	analyticsModule := analytics.NewAnalyticsModule(analyticsDb)

	router := gin.Default()

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})

	router.Use(sessions.Sessions("chronicle-session", store))

	router.SetFuncMap(map[string]interface{}{
		"now": func() time.Time {
			return time.Now()
		},
		"deref": func(p *uint) uint {
			if p == nil {
				return 0
			}
			return *p
		},
		"domain": func() string {
			d := os.Getenv("DOMAIN")
			if d == "" {
				return "http://localhost:8080"
			}
			return d
		},
	})

	router.LoadHTMLGlob("*/views/*.html")

	router.Static("/public", "./public")
	router.Static("/uploads", "./uploads")

	accountsModule := accounts.NewAccountsModule(db)
	accountsModule.RegisterRoutes(router)

	blogModule := blog.NewBlogModule(db, analyticsModule)
	blogModule.RegisterRoutes(router)

	pagesModule := pages.NewPagesModule(db)
	pagesModule.RegisterRoutes(router)

	adminModule := admin.NewAdminModule(db)
	adminModule.RegisterRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
