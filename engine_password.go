package authcore

import (
	"context"
	"errors"
	"log"
)

// ChangePassword rotates the password of a logged-in, verified account. The
// presented refresh token is revoked and a fresh session is issued, so the
// old token can never outlive the old password. The refresh token is checked
// before anything is written; an invalid token leaves the password untouched.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, username, currentPassword, newPassword, refreshToken string) (*SessionResult, error) {
	if e.accountProvider == nil || e.passwordHash == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if username == "" || currentPassword == "" || newPassword == "" {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "invalid_input",
			}
		})
		return nil, ErrPasswordPolicy
	}

	if _, err := e.jwtManager.ParseRefresh(refreshToken); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, "", "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"username": username,
				"reason":   "refresh_parse_failed",
			}
		})
		return nil, ErrRefreshInvalid
	}

	account, err := e.accountProvider.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrProviderAccountNotFound) {
			e.emitAudit(ctx, auditEventPasswordChangeFailure, false, "", "", ErrAccountNotFound, func() map[string]string {
				return map[string]string{
					"username": username,
				}
			})
			return nil, ErrAccountNotFound
		}
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, "", "", ErrProviderUnavailable, nil)
		return nil, ErrProviderUnavailable
	}

	if !account.Verified {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, account.ID, account.Email, ErrAccountUnverified, nil)
		return nil, ErrAccountUnverified
	}

	currentOK, err := e.passwordHash.Verify(currentPassword, account.PasswordHash)
	if err != nil || !currentOK {
		e.metricInc(MetricPasswordChangeInvalidCurrent)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, account.ID, account.Email, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": "current_password_mismatch",
			}
		})
		return nil, ErrInvalidCredentials
	}

	samePassword, err := e.passwordHash.Verify(newPassword, account.PasswordHash)
	if err == nil && samePassword {
		e.metricInc(MetricPasswordChangeReuseRejected)
		e.emitAudit(ctx, auditEventPasswordChangeReuse, false, account.ID, account.Email, ErrPasswordReuse, nil)
		return nil, ErrPasswordReuse
	}

	newHash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, account.ID, account.Email, ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "hash_policy",
			}
		})
		return nil, ErrPasswordPolicy
	}
	currentPassword = ""
	newPassword = ""

	if err := e.accountProvider.UpdatePasswordHash(ctx, username, newHash); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, account.ID, account.Email, ErrProviderUnavailable, func() map[string]string {
			return map[string]string{
				"reason": "update_hash_failed",
			}
		})
		return nil, ErrProviderUnavailable
	}
	account.PasswordHash = newHash

	if _, err := e.refreshStore.Delete(ctx, refreshToken); err != nil {
		// Password already rotated; the stale token still dies with its TTL.
		log.Print("authcore: refresh revocation failed after password change")
	}

	session, err := e.issueSession(ctx, account)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, account.ID, account.Email, err, func() map[string]string {
			return map[string]string{
				"reason": "issue_session_failed",
			}
		})
		return nil, err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, account.ID, account.Email, nil, nil)

	return session, nil
}

// ForgotPassword starts the recovery flow by mailing a password-reset code to
// the account's e-mail.
//
// ForgotPassword may return an error when input validation, dependency calls, or security checks fail.
// ForgotPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ForgotPassword(ctx context.Context, email string) (*PendingVerification, error) {
	if e.accountProvider == nil || e.codes == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.accountProvider.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrProviderAccountNotFound) {
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", email, ErrAccountNotFound, nil)
			return nil, ErrAccountNotFound
		}
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", email, ErrProviderUnavailable, nil)
		return nil, ErrProviderUnavailable
	}

	expiresAt, err := e.issueAndDeliverCode(ctx, account, PurposePasswordReset)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, account.ID, email, err, nil)
		return nil, err
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, account.ID, email, nil, nil)

	return &PendingVerification{
		ExpiresAt: expiresAt,
		Message:   msgPasswordResetCodeSent,
	}, nil
}

// ResetPassword completes the recovery flow: a valid password-reset code
// replaces the account's password. No session is granted and no password
// knowledge is required; the caller must log in with the new password. The
// code is purged once the new hash is stored.
//
// ResetPassword may return an error when input validation, dependency calls, or security checks fail.
// ResetPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string) (*ResetConfirmation, error) {
	if e.accountProvider == nil || e.codes == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}
	if newPassword == "" {
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, "", email, ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "invalid_input",
			}
		})
		return nil, ErrPasswordPolicy
	}

	if err := e.codes.Verify(ctx, email, code, byte(PurposePasswordReset)); err != nil {
		mapped := e.mapLedgerErr(err)
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, "", email, mapped, func() map[string]string {
			return map[string]string{
				"reason": "code_check",
			}
		})
		return nil, mapped
	}

	account, err := e.accountProvider.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrProviderAccountNotFound) {
			e.metricInc(MetricPasswordResetFailure)
			e.emitAudit(ctx, auditEventPasswordResetFailure, false, "", email, ErrAccountNotFound, nil)
			return nil, ErrAccountNotFound
		}
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, "", email, ErrProviderUnavailable, nil)
		return nil, ErrProviderUnavailable
	}

	newHash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, account.ID, email, ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "hash_policy",
			}
		})
		return nil, ErrPasswordPolicy
	}
	newPassword = ""

	if err := e.accountProvider.UpdatePasswordHash(ctx, account.Username, newHash); err != nil {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, account.ID, email, ErrProviderUnavailable, func() map[string]string {
			return map[string]string{
				"reason": "update_hash_failed",
			}
		})
		return nil, ErrProviderUnavailable
	}

	if err := e.codes.Purge(ctx, email); err != nil {
		log.Print("authcore: code purge failed after password reset")
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, account.ID, email, nil, nil)

	return &ResetConfirmation{
		Message: msgPasswordResetDone,
	}, nil
}
