package auth

import (
	"errors"
	"testing"
)

// backends runs the credential suite against the in-memory and sqlite managers.
func backends(t *testing.T) map[string]Service {
	t.Helper()
	sqliteManager, err := NewSQLiteManager(":memory:", 0)
	if err != nil {
		t.Fatalf("sqlite manager: %v", err)
	}
	t.Cleanup(func() { _ = sqliteManager.Close() })
	return map[string]Service{
		"memory": NewManager(),
		"sqlite": sqliteManager,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	for name, m := range backends(t) {
		t.Run(name, func(t *testing.T) {
			accountID, token, err := m.Register("alice_01", "secret12")
			if err != nil {
				t.Fatalf("register failed: %v", err)
			}
			if accountID == 0 || token == "" {
				t.Fatalf("expected account id and token, got %d/%q", accountID, token)
			}

			resolvedID, username, ok := m.ResolveSession(token)
			if !ok {
				t.Fatalf("expected valid session")
			}
			if resolvedID != accountID {
				t.Fatalf("expected same account id, got %d and %d", accountID, resolvedID)
			}
			if username != "alice_01" {
				t.Fatalf("expected username alice_01, got %s", username)
			}

			loginID, loginToken, err := m.Login("alice_01", "secret12")
			if err != nil {
				t.Fatalf("login failed: %v", err)
			}
			if loginID != accountID {
				t.Fatalf("expected same account id after login")
			}
			if loginToken == "" {
				t.Fatalf("expected login token")
			}
		})
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	for name, m := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, err := m.Register("alice_01", "secret12"); err != nil {
				t.Fatalf("register failed: %v", err)
			}
			if _, _, err := m.Register("Alice_01", "secret12"); !errors.Is(err, ErrUsernameTaken) {
				t.Fatalf("expected ErrUsernameTaken, got %v", err)
			}
		})
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	for name, m := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, err := m.Register("alice_01", "secret12"); err != nil {
				t.Fatalf("register failed: %v", err)
			}
			if _, _, err := m.Login("alice_01", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	for name, m := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, err := m.Register("ab", "secret12"); !errors.Is(err, ErrInvalidUsername) {
				t.Fatalf("expected ErrInvalidUsername, got %v", err)
			}
			if _, _, err := m.Register("alice_01", "short"); !errors.Is(err, ErrInvalidPassword) {
				t.Fatalf("expected ErrInvalidPassword, got %v", err)
			}
		})
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	for name, m := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, token, err := m.Register("alice_01", "secret12")
			if err != nil {
				t.Fatalf("register failed: %v", err)
			}
			m.Logout(token)
			if _, _, ok := m.ResolveSession(token); ok {
				t.Fatalf("expected logged out token to be invalid")
			}
		})
	}
}
