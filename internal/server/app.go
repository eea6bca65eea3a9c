package server

import (
	"context"
	"log"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"coursechat/internal/common"
)

// PreferenceWriter is the mutation side of the preference store; the
// read side comes in as common.PreferenceStore.
type PreferenceWriter interface {
	SetGlobal(ctx context.Context, userID string, enabled bool) error
	SetChannel(ctx context.Context, userID, channelID string, enabled bool) error
}

// Enroller adds a user to a course channel's membership.
type Enroller interface {
	Enroll(ctx context.Context, userID, channelID string) error
}

// App bundles the hub with its HTTP surface.
type App struct {
	Hub       *Hub
	Registry  *Registry
	Directory common.CourseDirectory
	Enroller  Enroller
	Prefs     common.PreferenceStore
	PrefsW    PreferenceWriter
}

func NewApp(hub *Hub, registry *Registry, directory common.CourseDirectory, enroller Enroller, prefs common.PreferenceStore, prefsW PreferenceWriter) *App {
	return &App{
		Hub:       hub,
		Registry:  registry,
		Directory: directory,
		Enroller:  enroller,
		Prefs:     prefs,
		PrefsW:    prefsW,
	}
}

// Fiber builds the HTTP app: auth endpoints, channel directory,
// preference management, and the websocket upgrade.
func (a *App) Fiber() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Post("/api/register", a.handleRegister)
	app.Post("/api/login", a.handleLogin)

	api := app.Group("/api", a.requireAuth)
	api.Get("/channels", a.handleChannels)
	api.Post("/channels/:channelID/enroll", a.handleEnroll)
	api.Get("/preferences", a.handleGetPreferences)
	api.Put("/preferences/global", a.handleSetGlobal)
	api.Put("/preferences/channel", a.handleSetChannel)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		// Headers are only visible before the upgrade, so the token is
		// validated here and the identity rides through Locals.
		claims, err := claimsFromRequest(c)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		c.Locals("user", common.User{ID: claims.UserID, DisplayName: claims.DisplayName})
		return c.Next()
	})
	app.Get("/ws", websocket.New(a.handleWS))

	return app
}

func (a *App) handleRegister(c *fiber.Ctx) error {
	var req struct {
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	user, err := a.Registry.Register(req.UserID, req.DisplayName, req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (a *App) handleLogin(c *fiber.Ctx) error {
	var req struct {
		UserID   string `json:"user_id"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	token, user, err := a.Registry.Login(req.UserID, req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}
	return c.JSON(fiber.Map{"token": token, "user": user})
}

func (a *App) requireAuth(c *fiber.Ctx) error {
	claims, err := claimsFromRequest(c)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}
	c.Locals("user", common.User{ID: claims.UserID, DisplayName: claims.DisplayName})
	return c.Next()
}

func claimsFromRequest(c *fiber.Ctx) (*common.Claims, error) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	}
	return common.ValidToken(token)
}

func (a *App) handleChannels(c *fiber.Ctx) error {
	user := c.Locals("user").(common.User)
	if a.Directory == nil {
		return c.JSON([]common.ChannelInfo{})
	}
	channels, err := a.Directory.ListJoinableChannels(c.Context(), user.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(channels)
}

func (a *App) handleEnroll(c *fiber.Ctx) error {
	user := c.Locals("user").(common.User)
	channelID := c.Params("channelID")
	if channelID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "channel id is required")
	}
	if a.Enroller == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "enrollment not configured")
	}
	if err := a.Enroller.Enroll(c.Context(), user.ID, channelID); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *App) handleGetPreferences(c *fiber.Ctx) error {
	user := c.Locals("user").(common.User)
	if a.Prefs == nil {
		return c.JSON(common.Preferences{})
	}
	prefs, err := a.Prefs.GetPreferences(c.Context(), user.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(prefs)
}

func (a *App) handleSetGlobal(c *fiber.Ctx) error {
	user := c.Locals("user").(common.User)
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if a.PrefsW == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "preference store not configured")
	}
	if err := a.PrefsW.SetGlobal(c.Context(), user.ID, req.Enabled); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *App) handleSetChannel(c *fiber.Ctx) error {
	user := c.Locals("user").(common.User)
	var req struct {
		ChannelID string `json:"channel_id"`
		Enabled   bool   `json:"enabled"`
	}
	if err := c.BodyParser(&req); err != nil || req.ChannelID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "channel_id is required")
	}
	if a.PrefsW == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "preference store not configured")
	}
	if err := a.PrefsW.SetChannel(c.Context(), user.ID, req.ChannelID, req.Enabled); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleWS runs the pumps for an authenticated, upgraded connection.
func (a *App) handleWS(conn *websocket.Conn) {
	user, ok := conn.Locals("user").(common.User)
	if !ok {
		log.Printf("server: websocket without identity, closing")
		_ = conn.Close()
		return
	}

	client := NewClient(uuid.NewString(), user, conn)
	a.Hub.Register <- client

	go client.WritePump()
	client.ReadPump(a.Hub) // blocks for the connection's lifetime
}
