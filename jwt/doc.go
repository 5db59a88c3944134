// Package jwt manages access- and refresh-token issuance and verification using
// configured signing keys and strict validation semantics suitable for
// low-latency authentication paths.
//
// # Token kinds
//
// Both token types are signed JWTs distinguished by a "knd" claim, so an access
// token can never be redeemed as a refresh token or vice versa. Refresh tokens
// additionally carry a random jti; their revocability comes from the allow-list
// record the Engine keeps alongside them, not from anything in this package.
//
// # What this package must NOT do
//
//   - Access Redis or any I/O.
//   - Import any other authcore package.
//   - Implement rotation or revocation logic.
package jwt
