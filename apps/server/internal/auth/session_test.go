package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGuestAccountsAreDistinct(t *testing.T) {
	for name, m := range backends(t) {
		t.Run(name, func(t *testing.T) {
			id1, username1, token1, err := m.Guest()
			if err != nil {
				t.Fatalf("guest failed: %v", err)
			}
			id2, username2, token2, err := m.Guest()
			if err != nil {
				t.Fatalf("guest failed: %v", err)
			}
			if id1 == id2 {
				t.Fatalf("expected distinct guest account ids, got %d twice", id1)
			}
			if username1 == username2 {
				t.Fatalf("expected distinct guest usernames, got %s twice", username1)
			}
			if token1 == token2 {
				t.Fatalf("expected distinct session tokens")
			}
			if !strings.HasPrefix(username1, "guest_") {
				t.Fatalf("expected guest_ username prefix, got %s", username1)
			}

			resolvedID, resolvedName, ok := m.ResolveSession(token1)
			if !ok {
				t.Fatalf("expected valid guest session")
			}
			if resolvedID != id1 || resolvedName != username1 {
				t.Fatalf("session resolved to %d/%s, want %d/%s", resolvedID, resolvedName, id1, username1)
			}
		})
	}
}

func TestGuestCannotLoginWithPassword(t *testing.T) {
	for name, m := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, username, _, err := m.Guest()
			if err != nil {
				t.Fatalf("guest failed: %v", err)
			}
			if _, _, err := m.Login(username, "anything"); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials for guest login, got %v", err)
			}
		})
	}
}

func TestResolveSessionRejectsUnknownToken(t *testing.T) {
	for name, m := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, ok := m.ResolveSession("not-a-token"); ok {
				t.Fatalf("expected unknown token to resolve as invalid")
			}
			if _, _, ok := m.ResolveSession(""); ok {
				t.Fatalf("expected empty token to resolve as invalid")
			}
		})
	}
}

func TestExpiredSessionIsPurged(t *testing.T) {
	m := NewManager()
	m.sessionTTL = time.Millisecond

	_, token, err := m.Register("alice_01", "secret12")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, _, ok := m.ResolveSession(token); ok {
		t.Fatalf("expected expired session to be invalid")
	}
}
