package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/clipforge/internal/storage"
	"github.com/codebuildervaibhav/clipforge/internal/upload"
)

// AuthHandler drives the publish platform OAuth flow.
type AuthHandler struct {
	oauth *upload.OAuth
	repo  *storage.Repository
}

// NewAuthHandler creates a new auth handler. oauth may be nil when the
// publish platform is not configured.
func NewAuthHandler(oauth *upload.OAuth, repo *storage.Repository) *AuthHandler {
	return &AuthHandler{
		oauth: oauth,
		repo:  repo,
	}
}

// Connect redirects the user to the provider's consent screen.
func (h *AuthHandler) Connect(c *fiber.Ctx) error {
	if h.oauth == nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "YouTube authentication is not configured",
			"code":  "ERR_AUTH_DISABLED",
		})
	}
	return c.Redirect(h.oauth.AuthURL(uuid.New().String()), 302)
}

// Callback handles the provider redirect and stores the credential.
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	if h.oauth == nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "YouTube authentication is not configured",
			"code":  "ERR_AUTH_DISABLED",
		})
	}

	if errParam := c.Query("error"); errParam != "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "YouTube authentication failed: " + errParam,
			"code":  "ERR_AUTH_DENIED",
		})
	}

	code := c.Query("code")
	if code == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "No authorization code received",
			"code":  "ERR_NO_CODE",
		})
	}

	email, err := h.oauth.Exchange(c.Context(), code)
	if err != nil {
		log.Printf("OAuth exchange failed: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to connect YouTube account",
			"code":  "ERR_AUTH_EXCHANGE",
		})
	}

	return c.JSON(fiber.Map{
		"user_email": email,
		"message":    "Successfully connected YouTube account: " + email,
	})
}

// Status reports whether a user has a stored credential.
func (h *AuthHandler) Status(c *fiber.Ctx) error {
	email := c.Query("user_email")
	if email == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "user_email is required",
			"code":  "ERR_NO_USER",
		})
	}

	cred, err := h.repo.GetCredential(email)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to load credentials",
			"code":  "ERR_DATABASE",
		})
	}
	if cred == nil {
		return c.JSON(fiber.Map{"connected": false})
	}
	return c.JSON(fiber.Map{
		"connected":         true,
		"user_email":        cred.UserEmail,
		"channel_id":        cred.ChannelID,
		"channel_title":     cred.ChannelTitle,
		"channel_thumbnail": cred.ChannelThumbnail,
	})
}

// Disconnect revokes and deletes a user's stored credential.
func (h *AuthHandler) Disconnect(c *fiber.Ctx) error {
	if h.oauth == nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "YouTube authentication is not configured",
			"code":  "ERR_AUTH_DISABLED",
		})
	}

	var req struct {
		UserEmail string `json:"user_email"`
	}
	if err := c.BodyParser(&req); err != nil || req.UserEmail == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "user_email is required",
			"code":  "ERR_NO_USER",
		})
	}

	if err := h.oauth.Revoke(c.Context(), req.UserEmail); err != nil {
		log.Printf("Failed to disconnect %s: %v", req.UserEmail, err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to disconnect YouTube account",
			"code":  "ERR_REVOKE",
		})
	}

	return c.JSON(fiber.Map{
		"message": "YouTube account disconnected successfully",
	})
}
