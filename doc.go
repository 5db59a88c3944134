// Package authcore provides an authentication and session lifecycle engine with
// JWT access tokens, rotating allow-listed refresh tokens, and an e-mail scoped
// one-time-code ledger gating account verification and password recovery.
//
// The package is designed for concurrent server workloads: Engine methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (SessionResult, PendingVerification, AuditEvent, etc.). Account
// storage is supplied by the caller through [AccountProvider]; out-of-band code
// delivery is supplied through [Mailer]. Engine-owned durable state (one-time
// codes and the refresh-token allow-list) lives in Redis behind the otp and
// refresh subpackages and is never exposed in the public API.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or record encodings in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Place a raw password or one-time code in an error message, audit event, or
//     log line.
//
// # Performance contract
//
// VerifyAccess is the hot path. It is a pure signature and expiry check and must
// complete without any Redis round-trip. Refresh, Login, and the lifecycle
// operations are allowed one Redis round-trip per owned store per call.
package authcore
