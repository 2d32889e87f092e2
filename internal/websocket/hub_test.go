package websocket

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"testing"
	"time"

	wstypes "gitwallet-service/internal/domain/websocket"
	"gitwallet-service/internal/pkg/jwt"

	"go.uber.org/zap"
)

func receive(t *testing.T, c *Client) *wstypes.WSMessage {
	t.Helper()
	select {
	case raw := <-c.send:
		var msg wstypes.WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func TestHubPublishesToOrganizationOnly(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	vendor := NewClient(hub, nil, &ClientAuth{UserID: "u1", OrganizationID: "org_a"})
	other := NewClient(hub, nil, &ClientAuth{UserID: "u2", OrganizationID: "org_b"})
	hub.Register <- vendor
	hub.Register <- other

	if msg := receive(t, vendor); msg.Type != wstypes.EventTypeConnected {
		t.Fatalf("first message = %q, want connected", msg.Type)
	}
	if msg := receive(t, other); msg.Type != wstypes.EventTypeConnected {
		t.Fatalf("first message = %q, want connected", msg.Type)
	}

	hub.PublishToOrganization("org_a", wstypes.EventTypePurchaseCompleted, wstypes.PurchaseData{Kind: "charge", RecordID: "ch_1"})

	if msg := receive(t, vendor); msg.Type != wstypes.EventTypePurchaseCompleted {
		t.Fatalf("got %q, want purchase event", msg.Type)
	}

	select {
	case raw := <-other.send:
		t.Fatalf("other organization received %s", raw)
	case <-time.After(50 * time.Millisecond):
	}

	if n := hub.ConnectedClients("org_a"); n != 1 {
		t.Fatalf("ConnectedClients = %d", n)
	}
}

func TestClientUnsubscribedChannelIsSkipped(t *testing.T) {
	hub := NewHub(nil, zap.NewNop())
	c := NewClient(hub, nil, &ClientAuth{UserID: "u1", OrganizationID: "org_a"})
	hub.registerClient(c)
	receive(t, c)

	c.Unsubscribe(wstypes.ChannelProspects)
	hub.BroadcastMessage(&BroadcastMessage{
		OrganizationID: "org_a",
		Channel:        wstypes.ChannelProspects,
		Message:        wstypes.NewMessage(wstypes.EventTypeProspectCreated, nil),
	})

	select {
	case raw := <-c.send:
		t.Fatalf("unsubscribed client received %s", raw)
	default:
	}

	if c.Subscribe("audit") {
		t.Fatal("unknown channel accepted")
	}
}

func TestAuthenticateClient(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	gen := jwt.NewGenerator(key, "gitwallet", "gitwallet-api", "k1", time.Hour)
	hub := NewHub(jwt.NewVerifier(&key.PublicKey, "gitwallet", "gitwallet-api"), zap.NewNop())

	vendorToken, jti, err := gen.GenerateAccessToken(jwt.Subject{UserID: "u1", OrganizationID: "org_a", Roles: []string{jwt.RoleVendor}})
	if err != nil {
		t.Fatal(err)
	}
	buyerToken, _, err := gen.GenerateAccessToken(jwt.Subject{UserID: "u2", Roles: []string{jwt.RoleBuyer}})
	if err != nil {
		t.Fatal(err)
	}

	auth, err := hub.AuthenticateClient(vendorToken)
	if err != nil {
		t.Fatalf("vendor token rejected: %v", err)
	}
	if auth.OrganizationID != "org_a" || auth.SessionID != jti {
		t.Fatalf("unexpected auth %+v", auth)
	}

	if _, err := hub.AuthenticateClient(buyerToken); !errors.Is(err, ErrNoOrganization) {
		t.Fatalf("buyer token: err = %v, want ErrNoOrganization", err)
	}
	if _, err := hub.AuthenticateClient("garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("garbage token: err = %v, want ErrUnauthorized", err)
	}
}
