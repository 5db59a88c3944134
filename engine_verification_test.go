package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestVerifyAccountGrantsFirstSession(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	provider := newMockProvider()
	mailer := &recordingMailer{}
	engine := newTestEngine(t, rdb, provider, mailer)

	if _, err := engine.Register(context.Background(), validRegisterInput()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	code := mailer.lastCode(t)

	session, err := engine.VerifyAccount(context.Background(), "ada@example.com", code)
	if err != nil {
		t.Fatalf("VerifyAccount failed: %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("verification must grant a full session")
	}

	account, err := provider.GetByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if !account.Verified {
		t.Fatal("account should be verified")
	}

	// The code is consumed by the transition.
	if mr.Exists("aotp:ada@example.com") {
		t.Fatal("code record should be purged after verification")
	}
	if _, err := engine.VerifyAccount(context.Background(), "ada@example.com", code); !errors.Is(err, ErrAlreadyVerified) && !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("replay should fail, got %v", err)
	}
}

func TestVerifyAccountWrongCodeIsNotConsuming(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	provider := newMockProvider()
	mailer := &recordingMailer{}
	engine := newTestEngine(t, rdb, provider, mailer)

	if _, err := engine.Register(context.Background(), validRegisterInput()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	code := mailer.lastCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}
	if _, err := engine.VerifyAccount(context.Background(), "ada@example.com", wrong); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}

	// The failed attempt must leave the real code redeemable.
	if _, err := engine.VerifyAccount(context.Background(), "ada@example.com", code); err != nil {
		t.Fatalf("real code should still verify: %v", err)
	}
}

func TestVerifyAccountNoOutstandingCode(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	provider := newMockProvider()
	engine := newTestEngine(t, rdb, provider, &recordingMailer{})
	seedAccount(t, engine, provider, "ada", "ada@example.com", "correct-horse-battery", false)

	_, err := engine.VerifyAccount(context.Background(), "ada@example.com", "123456")
	if !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
}

func TestVerifyAccountAlreadyVerified(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	provider := newMockProvider()
	mailer := &recordingMailer{}
	engine := newTestEngine(t, rdb, provider, mailer)
	account := seedAccount(t, engine, provider, "ada", "ada@example.com", "correct-horse-battery", true)

	// Seed an outstanding code directly; the verified flag must still win
	// even against a valid code.
	code, _, err := engine.codes.Issue(context.Background(), account.Email, byte(PurposeEmailVerification), 6, engine.config.OTP.EmailVerification.TTL)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := engine.VerifyAccount(context.Background(), "ada@example.com", code); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestVerifyAccountUnknownEmail(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine := newTestEngine(t, rdb, newMockProvider(), &recordingMailer{})

	// Seed a code for an e-mail that has no account behind it.
	code, _, err := engine.codes.Issue(context.Background(), "ghost@example.com", byte(PurposeEmailVerification), 6, engine.config.OTP.EmailVerification.TTL)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = engine.VerifyAccount(context.Background(), "ghost@example.com", code)
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestVerifyAccountRejectsPasswordResetCode(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	provider := newMockProvider()
	mailer := &recordingMailer{}
	engine := newTestEngine(t, rdb, provider, mailer)
	seedAccount(t, engine, provider, "ada", "ada@example.com", "correct-horse-battery", false)

	// A reset code for the same e-mail must not verify the account.
	code, _, err := engine.codes.Issue(context.Background(), "ada@example.com", byte(PurposePasswordReset), 6, engine.config.OTP.PasswordReset.TTL)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	_, err = engine.VerifyAccount(context.Background(), "ada@example.com", code)
	if !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch for purpose mismatch, got %v", err)
	}
}
