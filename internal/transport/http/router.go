package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/dmarkov/electrostore/internal/handlers"
	"github.com/dmarkov/electrostore/internal/middleware/auth"
)

type Deps struct {
	JWTSecret  []byte
	UploadDir  string
	Auth       *handlers.AuthHandler
	Products   *handlers.ProductHandler
	Categories *handlers.CategoryHandler
	Users      *handlers.UserHandler
	Contact    *handlers.ContactHandler
	Search     *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	requireAuth := auth.RequireAuth(d.JWTSecret)

	api := e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/login", d.Auth.Login)
	authGroup.GET("/me", d.Auth.Me, requireAuth)

	products := api.Group("/products")
	products.GET("", d.Products.List)
	products.GET("/:id", d.Products.Get)
	products.POST("", d.Products.Create, requireAuth, auth.AdminOnly)
	products.PUT("/:id", d.Products.Update, requireAuth, auth.AdminOnly)
	products.DELETE("/:id", d.Products.Delete, requireAuth, auth.AdminOnly)

	categories := api.Group("/categories")
	categories.GET("", d.Categories.List)
	categories.GET("/:id", d.Categories.Get)
	categories.POST("", d.Categories.Create, requireAuth, auth.AdminOnly)
	categories.PUT("/:id", d.Categories.Update, requireAuth, auth.AdminOnly)
	categories.DELETE("/:id", d.Categories.Delete, requireAuth, auth.AdminOnly)

	users := api.Group("/users", requireAuth)
	users.GET("", d.Users.List, auth.AdminOnly)
	users.GET("/:id", d.Users.Get, auth.AdminOnly)
	users.POST("", d.Users.Create, auth.AdminOnly)
	users.PUT("/:id", d.Users.Update, auth.AdminOnly)
	users.DELETE("/:id", d.Users.Delete, auth.AdminOnly)
	users.PUT("/:id/password", d.Users.ChangePassword)

	api.POST("/contact", d.Contact.Submit)
	messages := api.Group("/contact/messages", requireAuth, auth.AdminOnly)
	messages.GET("", d.Contact.List)
	messages.GET("/:id", d.Contact.Get)
	messages.PUT("/:id", d.Contact.Update)
	messages.DELETE("/:id", d.Contact.Delete)

	if d.Search != nil {
		api.GET("/search", d.Search.Handle)
	}

	e.Static("/uploads", d.UploadDir)
}
