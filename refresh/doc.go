// Package refresh implements the Redis-backed allow-list that makes signed
// refresh tokens revocable and single-use.
//
// # Revocation model
//
// A refresh token is redeemable only while a record keyed by the SHA-256 of the
// token string exists. Rotation consumes the record atomically (GETDEL), so two
// concurrent redemptions of the same token yield exactly one success. Records
// are written with a TTL matching the token's signature lifetime, so revoked or
// superseded tokens never need a sweeper. Tokens are never stored in plaintext —
// the store retains only the token digest as the key.
//
// # Architecture boundaries
//
// This package owns record persistence and atomic consumption. Signature
// verification, rotation policy, and pair minting are handled by the Engine and
// the jwt package.
//
// # What this package must NOT do
//
//   - Parse or verify JWTs.
//   - Import authcore or jwt.
//   - Mint replacement tokens.
package refresh
