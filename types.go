package authcore

import (
	"context"
	"time"
)

// OTPPurpose identifies why a one-time code was issued. It selects the code
// length, validity window, and mail content.
type OTPPurpose uint8

const (
	// PurposeEmailVerification is an exported constant or variable used by the lifecycle engine.
	PurposeEmailVerification OTPPurpose = iota
	// PurposePasswordReset is an exported constant or variable used by the lifecycle engine.
	PurposePasswordReset
	// PurposeTwoStepAuth is an exported constant or variable used by the lifecycle engine.
	PurposeTwoStepAuth
)

// String describes the string operation and its observable behavior.
//
// String may return an error when input validation, dependency calls, or security checks fail.
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p OTPPurpose) String() string {
	switch p {
	case PurposePasswordReset:
		return "password_reset"
	case PurposeTwoStepAuth:
		return "two_step_auth"
	default:
		return "email_verification"
	}
}

// Account is the full account record exchanged with [AccountProvider].
// It carries the password hash and is never returned to callers of the
// Engine; responses carry [AccountView] instead.
type Account struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Username     string
	PasswordHash string
	Verified     bool
	CreatedAt    time.Time
}

// AccountView is the redacted account representation included in a
// [SessionResult]. It never contains the password hash or the internal id.
type AccountView struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Verified  bool
}

func (a Account) view() AccountView {
	return AccountView{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Username:  a.Username,
		Verified:  a.Verified,
	}
}

// CreateAccountInput is the input for [AccountProvider.Create]. The engine
// fills every field, including the generated ID; the password arrives
// pre-hashed and the raw value is never passed to the provider.
type CreateAccountInput struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Username     string
	PasswordHash string
	Verified     bool
}

// AccountProvider is the primary interface that callers must implement to
// integrate authcore with their account database. Lookups that miss must
// return [ErrProviderAccountNotFound]; Create must return
// [ErrProviderDuplicateAccount] on a username or e-mail collision; and
// MarkVerified must flip the verified flag exactly once, returning
// [ErrProviderAlreadyVerified] on any later call — the engine relies on that
// for idempotent verification under concurrent retries.
type AccountProvider interface {
	GetByUsername(ctx context.Context, username string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	Create(ctx context.Context, input CreateAccountInput) (Account, error)
	UpdatePasswordHash(ctx context.Context, username string, newHash string) error
	MarkVerified(ctx context.Context, email string) (Account, error)
}

// Mailer delivers a one-time code out of band. Delivery failures surface as
// [ErrMailDelivery] from the lifecycle operation that triggered the send;
// the engine never retries a delivery.
type Mailer interface {
	Deliver(ctx context.Context, to, subject, body string) error
}

// MailerFunc adapts a plain function to the [Mailer] interface.
type MailerFunc func(ctx context.Context, to, subject, body string) error

// Deliver describes the deliver operation and its observable behavior.
//
// Deliver may return an error when input validation, dependency calls, or security checks fail.
// Deliver does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (f MailerFunc) Deliver(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

// TokenPair carries a freshly minted access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionResult is returned by the operations that grant a session. The
// account view is redacted; see [AccountView].
type SessionResult struct {
	AccessToken  string
	RefreshToken string
	Account      AccountView
}

// PendingVerification is returned when an operation issued a one-time code
// instead of a session: registration, unverified login, explicit code
// requests, and password-reset requests.
type PendingVerification struct {
	ExpiresAt time.Time
	Message   string
}

// LoginResult is the tagged union returned by [Engine.Login]. Exactly one of
// Session and Pending is set; Verified is the discriminant callers must
// branch on.
type LoginResult struct {
	Verified bool
	Session  *SessionResult
	Pending  *PendingVerification
}

// RegisterInput is the input for [Engine.Register].
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Password  string
}

// AccessIdentity is the payload extracted from a valid access token by
// [Engine.VerifyAccess].
type AccessIdentity struct {
	AccountID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ResetConfirmation is returned by [Engine.ResetPassword]. A reset never
// grants a session; the caller must log in with the new password.
type ResetConfirmation struct {
	Message string
}
