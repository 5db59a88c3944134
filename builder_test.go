package authcore

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
)

func builderConfig(t *testing.T) Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	return cfg
}

func TestBuilderBuildsWorkingEngine(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	provider := newMockProvider()
	mailer := &recordingMailer{}

	engine, err := New().
		WithConfig(builderConfig(t)).
		WithRedis(rdb).
		WithAccountProvider(provider).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Register(context.Background(), validRegisterInput()); err != nil {
		t.Fatalf("Register on built engine failed: %v", err)
	}
	if _, err := engine.VerifyAccount(context.Background(), "ada@example.com", mailer.lastCode(t)); err != nil {
		t.Fatalf("VerifyAccount on built engine failed: %v", err)
	}
}

func TestBuilderRequiresDependencies(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cases := map[string]func(t *testing.T) *Builder{
		"missing redis": func(t *testing.T) *Builder {
			return New().WithConfig(builderConfig(t)).
				WithAccountProvider(newMockProvider()).
				WithMailer(&recordingMailer{})
		},
		"missing provider": func(t *testing.T) *Builder {
			return New().WithConfig(builderConfig(t)).
				WithRedis(rdb).
				WithMailer(&recordingMailer{})
		},
		"missing mailer": func(t *testing.T) *Builder {
			return New().WithConfig(builderConfig(t)).
				WithRedis(rdb).
				WithAccountProvider(newMockProvider())
		},
		"missing signing keys": func(t *testing.T) *Builder {
			return New().
				WithRedis(rdb).
				WithAccountProvider(newMockProvider()).
				WithMailer(&recordingMailer{})
		},
	}

	for name, build := range cases {
		if _, err := build(t).Build(); err == nil {
			t.Fatalf("%s: expected Build to fail", name)
		}
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := builderConfig(t)
	cfg.JWT.AccessTTL = 0

	_, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountProvider(newMockProvider()).
		WithMailer(&recordingMailer{}).
		Build()
	if err == nil || !strings.Contains(err.Error(), "AccessTTL") {
		t.Fatalf("expected AccessTTL validation error, got %v", err)
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	builder := New().
		WithConfig(builderConfig(t)).
		WithRedis(rdb).
		WithAccountProvider(newMockProvider()).
		WithMailer(&recordingMailer{})

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := builder.Build(); err == nil {
		t.Fatal("second Build on the same builder must fail")
	}
}

func TestBuilderWiresAuditSink(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := builderConfig(t)
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16

	sink := NewChannelSink(16)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountProvider(newMockProvider()).
		WithMailer(&recordingMailer{}).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if _, err := engine.Login(context.Background(), "ghost", "whatever-password"); err == nil {
		t.Fatal("expected login failure")
	}
	engine.Close()

	select {
	case event := <-sink.Events():
		if event.EventType != "login_failure" {
			t.Fatalf("unexpected event type: %q", event.EventType)
		}
	default:
		t.Fatal("expected an audit event from the built engine")
	}
}
