package handlers

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postpub/internal/service"
	"github.com/maheshrc27/postpub/internal/transfer"
)

const scheduleTimeLayout = "2006-01-02T15:04"

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) SyncDrafts(c *fiber.Ctx) error {
	moved, err := h.s.SyncDrafts(c.Context())
	if err != nil {
		return respondError(c, err, "Posts folder not found.", "Error reading posts folder.")
	}

	return c.JSON(fiber.Map{
		"message": "Posts moved to drafts.",
		"moved":   moved,
	})
}

func (h *PostHandler) ListDrafts(c *fiber.Ctx) error {
	drafts, err := h.s.ListDrafts(c.Context())
	if err != nil {
		return respondError(c, err, "Drafts not found.", "Error reading drafts.")
	}

	return c.JSON(drafts)
}

func (h *PostHandler) AcceptPost(c *fiber.Ctx) error {
	var req transfer.AcceptPost
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse json")
	}

	id, err := h.s.AcceptPost(c.Context(), req.FileName, req.Caption)
	if err != nil {
		return respondError(c, err, "Draft not found.", "Error accepting post.")
	}

	return c.JSON(fiber.Map{
		"id":      id,
		"message": "Post accepted.",
	})
}

func (h *PostHandler) RejectPost(c *fiber.Ctx) error {
	var req transfer.RejectPost
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse json")
	}

	if err := h.s.RejectPost(c.Context(), req.FileName); err != nil {
		return respondError(c, err, "Draft not found.", "Error rejecting post.")
	}

	return c.SendString("Post rejected and deleted.")
}

func (h *PostHandler) ListPendingPublish(c *fiber.Ctx) error {
	posts, err := h.s.ListPendingPublish(c.Context())
	if err != nil {
		return respondError(c, err, "Posts not found.", "Error reading posts.")
	}

	return c.JSON(posts)
}

func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	var req transfer.PublishPost
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse json")
	}

	if _, err := h.s.PublishPost(c.Context(), req.ID); err != nil {
		return respondError(c, err, "Post not found.", "Error publishing post.")
	}

	return c.SendString("Post published successfully.")
}

func (h *PostHandler) DeletePending(c *fiber.Ctx) error {
	if err := h.s.DeletePending(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err, "Post not found.", "Error deleting post.")
	}

	return c.SendString("Post deleted.")
}

func (h *PostHandler) ListPublished(c *fiber.Ctx) error {
	posts, err := h.s.ListPublished(c.Context())
	if err != nil {
		return respondError(c, err, "Posts not found.", "Error reading posts.")
	}

	return c.JSON(posts)
}

func (h *PostHandler) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return badRequest(c, "Image upload failed")
	}

	src, err := file.Open()
	if err != nil {
		return badRequest(c, "Image upload failed")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return badRequest(c, "Image upload failed")
	}

	fileName, err := h.s.UploadImage(c.Context(), file.Filename, data)
	if err != nil {
		return respondError(c, err, "Posts folder not found.", "Error saving image.")
	}

	return c.JSON(fiber.Map{
		"message":  "Image uploaded successfully",
		"fileName": fileName,
	})
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	var req transfer.SchedulePost
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse json")
	}

	at, err := parseScheduleTime(req.ScheduledTime)
	if err != nil {
		return badRequest(c, "Invalid scheduled time")
	}

	if err := h.s.SchedulePublish(c.Context(), req.ID, at); err != nil {
		return respondError(c, err, "Post not found.", "Error scheduling post.")
	}

	return c.SendString("Post scheduled.")
}

// parseScheduleTime accepts RFC 3339 or a local "2006-01-02T15:04" value as
// sent by datetime-local inputs.
func parseScheduleTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation(scheduleTimeLayout, value, time.Local)
}

func (h *PostHandler) ListHistory(c *fiber.Ctx) error {
	attempts, err := h.s.History(c.Context())
	if err != nil {
		return respondError(c, err, "History not found.", "Error reading history.")
	}

	return c.JSON(attempts)
}
