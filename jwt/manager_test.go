package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func newHSManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-signing-secret-0123456789"),
		Issuer:        "authcore-test",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func newEdManager(t *testing.T) *Manager {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	m, err := NewManager(Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestAccessRoundTrip(t *testing.T) {
	for name, m := range map[string]*Manager{
		"hs256":   newHSManager(t),
		"ed25519": newEdManager(t),
	} {
		token, err := m.CreateAccess("acct-1")
		if err != nil {
			t.Fatalf("%s: CreateAccess failed: %v", name, err)
		}

		claims, err := m.ParseAccess(token)
		if err != nil {
			t.Fatalf("%s: ParseAccess failed: %v", name, err)
		}
		if claims.Subject != "acct-1" {
			t.Fatalf("%s: subject mismatch: %q", name, claims.Subject)
		}
		if claims.ID != "" {
			t.Fatalf("%s: access tokens must not carry a jti, got %q", name, claims.ID)
		}
	}
}

func TestRefreshRoundTrip(t *testing.T) {
	m := newHSManager(t)

	token, err := m.CreateRefresh("acct-1")
	if err != nil {
		t.Fatalf("CreateRefresh failed: %v", err)
	}

	claims, err := m.ParseRefresh(token)
	if err != nil {
		t.Fatalf("ParseRefresh failed: %v", err)
	}
	if claims.Subject != "acct-1" {
		t.Fatalf("subject mismatch: %q", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatal("refresh tokens must carry a jti")
	}

	// Consecutive refresh tokens differ through the jti even within the same
	// second.
	other, err := m.CreateRefresh("acct-1")
	if err != nil {
		t.Fatalf("CreateRefresh failed: %v", err)
	}
	if other == token {
		t.Fatal("refresh tokens must be unique")
	}
}

func TestKindConfinement(t *testing.T) {
	m := newHSManager(t)

	access, err := m.CreateAccess("acct-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	refresh, err := m.CreateRefresh("acct-1")
	if err != nil {
		t.Fatalf("CreateRefresh failed: %v", err)
	}

	if _, err := m.ParseRefresh(access); err == nil {
		t.Fatal("access token must not parse as refresh")
	}
	if _, err := m.ParseAccess(refresh); err == nil {
		t.Fatal("refresh token must not parse as access")
	}
}

func TestParseRejectsForeignKey(t *testing.T) {
	m := newHSManager(t)

	other, err := NewManager(Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("a-completely-different-secret!"),
		Issuer:        "authcore-test",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := other.CreateAccess("acct-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("token signed with a foreign key must not parse")
	}
}

func TestParseRejectsCrossAlgorithm(t *testing.T) {
	hs := newHSManager(t)
	ed := newEdManager(t)

	token, err := hs.CreateAccess("acct-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := ed.ParseAccess(token); err == nil {
		t.Fatal("hs256 token must not parse under an ed25519 manager")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m, err := NewManager(Config{
		AccessTTL:     time.Nanosecond,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-signing-secret-0123456789"),
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := m.CreateAccess("acct-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expired token must not parse")
	}
}

func TestParseEnforcesIssuer(t *testing.T) {
	issuing := newHSManager(t)

	strict, err := NewManager(Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-signing-secret-0123456789"),
		Issuer:        "someone-else",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := issuing.CreateAccess("acct-1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}
	if _, err := strict.ParseAccess(token); err == nil {
		t.Fatal("issuer mismatch must not parse")
	}
}

func TestCreateRejectsEmptyAccountID(t *testing.T) {
	m := newHSManager(t)

	if _, err := m.CreateAccess(""); err == nil {
		t.Fatal("expected error for empty account id")
	}
	if _, err := m.CreateRefresh(""); err == nil {
		t.Fatal("expected error for empty account id")
	}
}

func TestNewManagerValidation(t *testing.T) {
	base := Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("test-signing-secret-0123456789"),
	}

	cases := map[string]func(Config) Config{
		"zero access ttl":      func(c Config) Config { c.AccessTTL = 0; return c },
		"zero refresh ttl":     func(c Config) Config { c.RefreshTTL = 0; return c },
		"refresh below access": func(c Config) Config { c.RefreshTTL = c.AccessTTL; return c },
		"excessive leeway":     func(c Config) Config { c.Leeway = 5 * time.Minute; return c },
		"unknown method":       func(c Config) Config { c.SigningMethod = "rs512"; return c },
		"hs256 without key":    func(c Config) Config { c.PrivateKey = nil; return c },
		"ed25519 without public key": func(c Config) Config {
			c.SigningMethod = MethodEd25519
			c.PrivateKey = nil
			c.PublicKey = nil
			return c
		},
	}

	for name, mutate := range cases {
		if _, err := NewManager(mutate(base)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
