package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
)

// RegisterRoutes mounts the API on app. Images and the OAuth callback are
// registered ahead of auth so they stay public. auth may be nil.
func RegisterRoutes(app *fiber.App, post *PostHandler, account *AccountHandler, auth fiber.Handler, imageDirs ...string) {
	// Each mount falls through to the next when the file is missing. Files
	// are opened per request so removed images stop being served at once.
	for _, dir := range imageDirs {
		app.Use("/images", filesystem.New(filesystem.Config{
			Root: http.Dir(dir),
		}))
	}
	app.Get("/images/*", imageNotFound)

	app.Get("/auth/facebook/callback", account.FacebookCallback)

	if auth != nil {
		app.Use(auth)
	}

	app.Get("/auth/facebook", account.ConnectFacebook)
	app.Get("/account", account.AccountInfo)

	app.Post("/sync-drafts", post.SyncDrafts)
	app.Get("/initialize-drafts", post.SyncDrafts)
	app.Get("/drafts", post.ListDrafts)
	app.Post("/accept-post", post.AcceptPost)
	app.Post("/reject-post", post.RejectPost)
	app.Get("/to-be-published", post.ListPendingPublish)
	app.Delete("/to-be-published/:id", post.DeletePending)
	app.Post("/publish-post", post.PublishPost)
	app.Post("/schedule-post", post.SchedulePost)
	app.Get("/published", post.ListPublished)
	app.Get("/history", post.ListHistory)
	app.Post("/upload", post.UploadImage)
}

func imageNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).SendString("Image not found.")
}
