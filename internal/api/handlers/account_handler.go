package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/postpub/configs"
	"github.com/maheshrc27/postpub/internal/service"
	"github.com/maheshrc27/postpub/pkg/utils"
)

const oauthStateScope = "oauth-state"

type AccountHandler struct {
	fb  service.FacebookService
	cfg config.Config
}

func NewAccountHandler(fb service.FacebookService, cfg config.Config) *AccountHandler {
	return &AccountHandler{fb: fb, cfg: cfg}
}

// ConnectFacebook redirects to the Facebook login dialog. The state parameter
// is a short-lived signed token checked by the callback.
func (h *AccountHandler) ConnectFacebook(c *fiber.Ctx) error {
	if h.cfg.SecretKey == "" || h.cfg.Facebook.AppID == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Facebook login is not configured",
		})
	}

	state, err := utils.GenerateToken(h.cfg.SecretKey, "facebook", oauthStateScope, 10*time.Minute)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	return c.Redirect(h.fb.AuthURL(state))
}

func (h *AccountHandler) FacebookCallback(c *fiber.Ctx) error {
	claims, err := utils.ValidateToken(h.cfg.SecretKey, c.Query("state"))
	if err != nil || claims.Scope != oauthStateScope {
		return badRequest(c, "Unable to validate state")
	}

	if _, err := h.fb.FacebookCallback(c.Context(), c.Query("code")); err != nil {
		return respondError(c, err, "No Facebook page available.", "Error connecting Facebook page.")
	}

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}

func (h *AccountHandler) AccountInfo(c *fiber.Ctx) error {
	info, err := h.fb.AccountInfo(c.Context())
	if err != nil {
		return respondError(c, err, "No Facebook page connected.", "Error reading account.")
	}

	return c.JSON(info)
}
