// Package otp implements the Redis-backed ledger of e-mail scoped one-time
// codes used for account verification, password recovery, and two-step login.
//
// # Single-valid-code rule
//
// The ledger keeps at most one record per e-mail. Issue writes the new record
// with a plain SET, which atomically supersedes every previously issued code
// for that e-mail; Purge removes the record outright. The store holds only the
// SHA-256 digest of a code — the raw value exists solely in the Issue return
// value, for delivery.
//
// # Architecture boundaries
//
// Verify is deliberately non-consuming: callers verify, commit their state
// transition, then Purge. That split lets an orchestrator check a code more
// than once before committing side effects. Single-use enforcement therefore
// belongs to the caller, not to this package.
//
// # What this package must NOT do
//
//   - Deliver codes or render mail content.
//   - Import authcore (no upward imports).
//   - Persist or log a raw code value.
package otp
