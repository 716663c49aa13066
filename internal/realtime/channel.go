package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"shopapi/internal/models"
	"shopapi/internal/services"
)

// pingInterval matches the liveness cadence of the public API contract.
const pingInterval = 25 * time.Second

// Event is the wire envelope in both directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Accepted and emitted event names.
const (
	EventPing            = "ping"
	EventPong            = "pong"
	EventUpdateProfile   = "update-profile"
	EventProfileUpdated  = "profile-updated"
	EventUpdateError     = "update-error"
	EventChangePassword  = "change-password"
	EventPasswordChanged = "password-changed"
	EventPasswordError   = "password-error"
)

// UserUpdater is the slice of the user service the channel needs. Both
// realtime mutations reuse the exact service the HTTP handlers call.
type UserUpdater interface {
	UpdateProfile(ctx context.Context, id string, fullName *string, image *services.ImagePayload) (models.User, error)
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error
}

// Channel serves authenticated websocket connections exposing the two
// mutating operations. Replies go to the originating connection only.
type Channel struct {
	users  UserUpdater
	tokens *services.TokenService
}

func NewChannel(users UserUpdater, tokens *services.TokenService) *Channel {
	return &Channel{users: users, tokens: tokens}
}

// Upgrade gates the handshake: the token travels in the ?token= query
// value and must verify before the connection is upgraded.
func (ch *Channel) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	identity, err := ch.tokens.ParseToken(c.Query("token"))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "authentication required"})
	}

	c.Locals("identity", identity)
	return c.Next()
}

// Handler returns the websocket connection handler to mount behind
// Upgrade.
func (ch *Channel) Handler() fiber.Handler {
	return websocket.New(ch.serve)
}

func (ch *Channel) serve(conn *websocket.Conn) {
	identity, ok := conn.Locals("identity").(services.Identity)
	if !ok {
		conn.Close()
		return
	}

	log.Printf("realtime: client connected (user %s)", identity.UserID)

	// Single-writer rule: the ping ticker and reply writes share the
	// connection.
	var writeMu sync.Mutex
	send := func(evt Event) {
		if evt.Event == "" {
			return
		}
		payload, err := json.Marshal(evt)
		if err != nil {
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("realtime: write failed for user %s: %v", identity.UserID, err)
		}
	}

	// Liveness ping, cancelled exactly once when the read loop exits.
	done := make(chan struct{})
	ticker := time.NewTicker(pingInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				send(Event{Event: EventPing})
			case <-done:
				return
			}
		}
	}()

	defer func() {
		close(done)
		conn.Close()
		log.Printf("realtime: client disconnected (user %s)", identity.UserID)
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var evt Event
		if err := json.Unmarshal(message, &evt); err != nil {
			continue
		}
		send(ch.HandleEvent(context.Background(), identity, evt))
	}
}

// updateProfileData keeps fullName a pointer so a present-but-empty
// value reaches validation instead of being treated as absent.
type updateProfileData struct {
	UserID   string                 `json:"userId"`
	FullName *string                `json:"fullName"`
	Image    *services.ImagePayload `json:"image"`
}

type changePasswordData struct {
	UserID          string `json:"userId"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleEvent dispatches one incoming event and returns the reply to
// emit, or a zero Event when no reply is due. Each mutation checks the
// payload's declared user id against the connection identity first.
func (ch *Channel) HandleEvent(ctx context.Context, identity services.Identity, evt Event) Event {
	switch evt.Event {
	case EventPong:
		return Event{}

	case EventUpdateProfile:
		var data updateProfileData
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			return errorEvent(EventUpdateError, "invalid payload")
		}
		if data.UserID != identity.UserID {
			return errorEvent(EventUpdateError, "unauthorized")
		}
		user, err := ch.users.UpdateProfile(ctx, data.UserID, data.FullName, data.Image)
		if err != nil {
			return errorEvent(EventUpdateError, err.Error())
		}
		return dataEvent(EventProfileUpdated, user)

	case EventChangePassword:
		var data changePasswordData
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			return errorEvent(EventPasswordError, "invalid payload")
		}
		if data.UserID != identity.UserID {
			return errorEvent(EventPasswordError, "unauthorized")
		}
		if err := ch.users.ChangePassword(ctx, data.UserID, data.CurrentPassword, data.NewPassword); err != nil {
			return errorEvent(EventPasswordError, err.Error())
		}
		return Event{Event: EventPasswordChanged}

	default:
		return Event{}
	}
}

func errorEvent(event, message string) Event {
	data, _ := json.Marshal(map[string]string{"message": message})
	return Event{Event: event, Data: data}
}

func dataEvent(event string, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		return errorEvent(EventUpdateError, "failed to encode response")
	}
	return Event{Event: event, Data: data}
}
