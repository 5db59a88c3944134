package authcore

import (
	"context"
	"errors"
)

// Login authenticates a username/password pair. A verified account gets a
// session; an unverified account gets a fresh verification code instead, and
// the result's Verified field tells the caller which branch it is on. An
// unknown username fails with [ErrAccountNotFound] and a wrong password with
// [ErrInvalidCredentials]; the two are deliberately distinguishable.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if e.accountProvider == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}
	if password == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"username": username,
				"reason":   "empty_password",
			}
		})
		return nil, ErrInvalidCredentials
	}

	account, err := e.accountProvider.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrProviderAccountNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrAccountNotFound, func() map[string]string {
				return map[string]string{
					"username": username,
					"reason":   "account_not_found",
				}
			})
			return nil, ErrAccountNotFound
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrProviderUnavailable, func() map[string]string {
			return map[string]string{
				"username": username,
			}
		})
		return nil, ErrProviderUnavailable
	}

	ok, err := e.passwordHash.Verify(password, account.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, account.Email, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"username": username,
				"reason":   "password_mismatch",
			}
		})
		return nil, ErrInvalidCredentials
	}
	password = ""

	if !account.Verified {
		expiresAt, err := e.issueAndDeliverCode(ctx, account, PurposeEmailVerification)
		if err != nil {
			e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, account.Email, err, func() map[string]string {
				return map[string]string{
					"username": username,
					"reason":   "code_delivery",
				}
			})
			return nil, err
		}

		e.metricInc(MetricLoginUnverified)
		e.emitAudit(ctx, auditEventLoginUnverified, true, account.ID, account.Email, nil, nil)

		return &LoginResult{
			Verified: false,
			Pending: &PendingVerification{
				ExpiresAt: expiresAt,
				Message:   msgVerifyYourAccount,
			},
		}, nil
	}

	session, err := e.issueSession(ctx, account)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID, account.Email, err, func() map[string]string {
			return map[string]string{
				"username": username,
				"reason":   "issue_session_failed",
			}
		})
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, account.Email, nil, nil)

	return &LoginResult{
		Verified: true,
		Session:  session,
	}, nil
}
