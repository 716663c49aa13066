package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shopapi/internal/models"
	"shopapi/internal/services"
)

type stubUpdater struct {
	updateCalls   int
	passwordCalls int
	updateErr     error
	passwordErr   error
	lastFullName  *string
}

func (s *stubUpdater) UpdateProfile(ctx context.Context, id string, fullName *string, image *services.ImagePayload) (models.User, error) {
	s.updateCalls++
	s.lastFullName = fullName
	if s.updateErr != nil {
		return models.User{}, s.updateErr
	}
	user := models.User{ID: primitive.NewObjectID()}
	if fullName != nil {
		user.FullName = *fullName
	}
	return user, nil
}

func (s *stubUpdater) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	s.passwordCalls++
	return s.passwordErr
}

func event(t *testing.T, name string, data interface{}) Event {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return Event{Event: name, Data: raw}
}

func TestUpdateProfileIdentityMismatch(t *testing.T) {
	stub := &stubUpdater{}
	ch := NewChannel(stub, nil)
	identity := services.Identity{UserID: "alice"}

	reply := ch.HandleEvent(context.Background(), identity, event(t, EventUpdateProfile,
		map[string]string{"userId": "mallory", "fullName": "Mallory"}))

	if reply.Event != EventUpdateError {
		t.Fatalf("expected %s, got %s", EventUpdateError, reply.Event)
	}
	var payload map[string]string
	if err := json.Unmarshal(reply.Data, &payload); err != nil {
		t.Fatalf("bad error payload: %v", err)
	}
	if payload["message"] != "unauthorized" {
		t.Errorf("message = %q, want unauthorized", payload["message"])
	}
	if stub.updateCalls != 0 {
		t.Error("service must not be called when identity does not match")
	}
}

func TestUpdateProfileSuccess(t *testing.T) {
	stub := &stubUpdater{}
	ch := NewChannel(stub, nil)
	identity := services.Identity{UserID: "alice"}

	reply := ch.HandleEvent(context.Background(), identity, event(t, EventUpdateProfile,
		map[string]string{"userId": "alice", "fullName": "Alice B"}))

	if reply.Event != EventProfileUpdated {
		t.Fatalf("expected %s, got %s", EventProfileUpdated, reply.Event)
	}
	if stub.updateCalls != 1 {
		t.Errorf("updateCalls = %d, want 1", stub.updateCalls)
	}
	if stub.lastFullName == nil || *stub.lastFullName != "Alice B" {
		t.Errorf("fullName not forwarded, got %v", stub.lastFullName)
	}
}

func TestUpdateProfileForwardsEmptyFullName(t *testing.T) {
	stub := &stubUpdater{}
	ch := NewChannel(stub, nil)
	identity := services.Identity{UserID: "alice"}

	reply := ch.HandleEvent(context.Background(), identity, event(t, EventUpdateProfile,
		map[string]string{"userId": "alice", "fullName": ""}))

	if reply.Event != EventProfileUpdated {
		t.Fatalf("expected %s, got %s", EventProfileUpdated, reply.Event)
	}
	if stub.lastFullName == nil || *stub.lastFullName != "" {
		t.Errorf("empty fullName must reach the service, got %v", stub.lastFullName)
	}
}

func TestUpdateProfileOmittedFullNameStaysNil(t *testing.T) {
	stub := &stubUpdater{}
	ch := NewChannel(stub, nil)
	identity := services.Identity{UserID: "alice"}

	reply := ch.HandleEvent(context.Background(), identity, event(t, EventUpdateProfile,
		map[string]interface{}{"userId": "alice", "image": map[string]string{"url": "http://cdn.test/a.png"}}))

	if reply.Event != EventProfileUpdated {
		t.Fatalf("expected %s, got %s", EventProfileUpdated, reply.Event)
	}
	if stub.lastFullName != nil {
		t.Errorf("omitted fullName must stay nil, got %q", *stub.lastFullName)
	}
}

func TestUpdateProfileServiceError(t *testing.T) {
	stub := &stubUpdater{updateErr: errors.New("user not found")}
	ch := NewChannel(stub, nil)
	identity := services.Identity{UserID: "alice"}

	reply := ch.HandleEvent(context.Background(), identity, event(t, EventUpdateProfile,
		map[string]string{"userId": "alice"}))

	if reply.Event != EventUpdateError {
		t.Fatalf("expected %s, got %s", EventUpdateError, reply.Event)
	}
}

func TestChangePassword(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		stub := &stubUpdater{}
		ch := NewChannel(stub, nil)
		identity := services.Identity{UserID: "alice"}

		reply := ch.HandleEvent(context.Background(), identity, event(t, EventChangePassword,
			map[string]string{"userId": "alice", "currentPassword": "old", "newPassword": "newpassword"}))

		if reply.Event != EventPasswordChanged {
			t.Fatalf("expected %s, got %s", EventPasswordChanged, reply.Event)
		}
		if stub.passwordCalls != 1 {
			t.Errorf("passwordCalls = %d, want 1", stub.passwordCalls)
		}
	})

	t.Run("identity mismatch", func(t *testing.T) {
		stub := &stubUpdater{}
		ch := NewChannel(stub, nil)
		identity := services.Identity{UserID: "alice"}

		reply := ch.HandleEvent(context.Background(), identity, event(t, EventChangePassword,
			map[string]string{"userId": "bob", "currentPassword": "old", "newPassword": "newpassword"}))

		if reply.Event != EventPasswordError {
			t.Fatalf("expected %s, got %s", EventPasswordError, reply.Event)
		}
		if stub.passwordCalls != 0 {
			t.Error("service must not be called when identity does not match")
		}
	})

	t.Run("wrong current password", func(t *testing.T) {
		stub := &stubUpdater{passwordErr: errors.New("current password incorrect")}
		ch := NewChannel(stub, nil)
		identity := services.Identity{UserID: "alice"}

		reply := ch.HandleEvent(context.Background(), identity, event(t, EventChangePassword,
			map[string]string{"userId": "alice", "currentPassword": "bad", "newPassword": "newpassword"}))

		if reply.Event != EventPasswordError {
			t.Fatalf("expected %s, got %s", EventPasswordError, reply.Event)
		}
	})
}

func TestPongAndUnknownEventsProduceNoReply(t *testing.T) {
	ch := NewChannel(&stubUpdater{}, nil)
	identity := services.Identity{UserID: "alice"}

	for _, name := range []string{EventPong, "made-up-event"} {
		reply := ch.HandleEvent(context.Background(), identity, Event{Event: name})
		if reply.Event != "" {
			t.Errorf("event %q should produce no reply, got %s", name, reply.Event)
		}
	}
}
