package authcore

import (
	"errors"
	"time"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	OTP      OTPConfig
	Mail     MailConfig
	Redis    RedisConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by authcore APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by authcore APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPPolicy holds the per-purpose code length and validity window.
//
// OTPPolicy instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OTPPolicy struct {
	Digits int
	TTL    time.Duration
}

// OTPConfig defines a public type used by authcore APIs.
//
// OTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OTPConfig struct {
	EmailVerification OTPPolicy
	PasswordReset     OTPPolicy
	TwoStepAuth       OTPPolicy
}

func (c OTPConfig) policyFor(purpose OTPPurpose) OTPPolicy {
	switch purpose {
	case PurposePasswordReset:
		return c.PasswordReset
	case PurposeTwoStepAuth:
		return c.TwoStepAuth
	default:
		return c.EmailVerification
	}
}

// MailConfig defines a public type used by authcore APIs.
//
// MailConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MailConfig struct {
	AppName string
}

// RedisConfig defines a public type used by authcore APIs.
//
// RedisConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RedisConfig struct {
	OTPPrefix     string
	RefreshPrefix string
}

// AuditConfig defines a public type used by authcore APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authcore APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration the Builder starts from. Callers
// adjust fields and pass the result to [Builder.WithConfig]; signing keys are
// always caller-supplied.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     30 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		OTP: OTPConfig{
			EmailVerification: OTPPolicy{Digits: 6, TTL: 10 * time.Minute},
			PasswordReset:     OTPPolicy{Digits: 6, TTL: 10 * time.Minute},
			TwoStepAuth:       OTPPolicy{Digits: 6, TTL: 5 * time.Minute},
		},
		Mail: MailConfig{
			AppName: "authcore",
		},
		Redis: RedisConfig{
			OTPPrefix:     "aotp",
			RefreshPrefix: "artk",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be greater than AccessTTL")
	}
	switch c.JWT.SigningMethod {
	case "ed25519", "hs256":
	default:
		return errors.New("JWT SigningMethod must be ed25519 or hs256")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	for _, policy := range []OTPPolicy{
		c.OTP.EmailVerification,
		c.OTP.PasswordReset,
		c.OTP.TwoStepAuth,
	} {
		if policy.Digits < 4 || policy.Digits > 10 {
			return errors.New("OTP Digits must be between 4 and 10")
		}
		if policy.TTL <= 0 {
			return errors.New("OTP TTL must be > 0")
		}
	}

	if c.Redis.OTPPrefix == "" {
		return errors.New("Redis OTPPrefix must not be empty")
	}
	if c.Redis.RefreshPrefix == "" {
		return errors.New("Redis RefreshPrefix must not be empty")
	}
	if c.Redis.OTPPrefix == c.Redis.RefreshPrefix {
		return errors.New("Redis OTPPrefix and RefreshPrefix must differ")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
