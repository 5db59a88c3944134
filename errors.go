package authcore

import "errors"

var (
	// ErrUnauthorized is an exported constant or variable used by the lifecycle engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is an exported constant or variable used by the lifecycle engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is an exported constant or variable used by the lifecycle engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUsernameTaken is an exported constant or variable used by the lifecycle engine.
	ErrUsernameTaken = errors.New("account with this username already exists")
	// ErrEmailTaken is an exported constant or variable used by the lifecycle engine.
	ErrEmailTaken = errors.New("account with this email already exists")
	// ErrAccountUnverified is an exported constant or variable used by the lifecycle engine.
	ErrAccountUnverified = errors.New("account unverified, verify your account first")
	// ErrAlreadyVerified is an exported constant or variable used by the lifecycle engine.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrCodeNotFound is an exported constant or variable used by the lifecycle engine.
	ErrCodeNotFound = errors.New("no code found, request a new one")
	// ErrCodeExpired is an exported constant or variable used by the lifecycle engine.
	ErrCodeExpired = errors.New("code expired, request a new one")
	// ErrCodeMismatch is an exported constant or variable used by the lifecycle engine.
	ErrCodeMismatch = errors.New("wrong code, try again")
	// ErrRefreshInvalid is an exported constant or variable used by the lifecycle engine.
	ErrRefreshInvalid = errors.New("expired or invalid refresh token, log in again")
	// ErrRefreshRevoked is an exported constant or variable used by the lifecycle engine.
	ErrRefreshRevoked = errors.New("refresh token revoked or already used, log in again")
	// ErrPasswordReuse is an exported constant or variable used by the lifecycle engine.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrPasswordPolicy is an exported constant or variable used by the lifecycle engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrMailDelivery is an exported constant or variable used by the lifecycle engine.
	ErrMailDelivery = errors.New("code delivery failed")
	// ErrCodeLedgerUnavailable is an exported constant or variable used by the lifecycle engine.
	ErrCodeLedgerUnavailable = errors.New("code ledger backend unavailable")
	// ErrTokenStoreUnavailable is an exported constant or variable used by the lifecycle engine.
	ErrTokenStoreUnavailable = errors.New("refresh token backend unavailable")
	// ErrProviderUnavailable is an exported constant or variable used by the lifecycle engine.
	ErrProviderUnavailable = errors.New("account provider unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the lifecycle engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrProviderAccountNotFound is an exported constant or variable used by the lifecycle engine.
	// AccountProvider implementations must return it (wrapped or not) for missing rows.
	ErrProviderAccountNotFound = errors.New("provider account not found")
	// ErrProviderDuplicateAccount is an exported constant or variable used by the lifecycle engine.
	ErrProviderDuplicateAccount = errors.New("provider duplicate account")
	// ErrProviderAlreadyVerified is an exported constant or variable used by the lifecycle engine.
	// AccountProvider.MarkVerified must return it when the flag was already set,
	// which is what keeps the Unverified -> Verified transition exactly-once
	// under concurrent verification attempts.
	ErrProviderAlreadyVerified = errors.New("provider account already verified")
)

// Kind classifies engine failures into the stable taxonomy callers branch on.
//
// Kind instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Kind uint8

const (
	// KindInternal is an exported constant or variable used by the lifecycle engine.
	KindInternal Kind = iota
	// KindConflict is an exported constant or variable used by the lifecycle engine.
	KindConflict
	// KindNotFound is an exported constant or variable used by the lifecycle engine.
	KindNotFound
	// KindUnauthorized is an exported constant or variable used by the lifecycle engine.
	KindUnauthorized
	// KindExpired is an exported constant or variable used by the lifecycle engine.
	KindExpired
	// KindPreconditionFailed is an exported constant or variable used by the lifecycle engine.
	KindPreconditionFailed
)

// String describes the string operation and its observable behavior.
//
// String may return an error when input validation, dependency calls, or security checks fail.
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindExpired:
		return "expired"
	case KindPreconditionFailed:
		return "precondition_failed"
	default:
		return "internal"
	}
}

// KindOf describes the kindof operation and its observable behavior.
//
// KindOf may return an error when input validation, dependency calls, or security checks fail.
// KindOf does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrUsernameTaken),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrAlreadyVerified),
		errors.Is(err, ErrPasswordReuse):
		return KindConflict
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrCodeNotFound):
		return KindNotFound
	case errors.Is(err, ErrCodeExpired):
		return KindExpired
	case errors.Is(err, ErrAccountUnverified):
		return KindPreconditionFailed
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrCodeMismatch),
		errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrRefreshRevoked):
		return KindUnauthorized
	default:
		return KindInternal
	}
}
