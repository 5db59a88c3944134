package authcore

import (
	"context"
	"errors"
	"log"
)

// VerifyAccount confirms ownership of an e-mail with a one-time code and
// flips the account from unverified to verified, granting its first session.
// The transition is exactly-once: when two calls race with the same valid
// code, one wins and the other fails with [ErrAlreadyVerified]. The code is
// purged only after the transition commits, so a failed attempt leaves the
// code redeemable.
//
// VerifyAccount may return an error when input validation, dependency calls, or security checks fail.
// VerifyAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyAccount(ctx context.Context, email, code string) (*SessionResult, error) {
	if e.accountProvider == nil || e.codes == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.codes.Verify(ctx, email, code, byte(PurposeEmailVerification)); err != nil {
		mapped := e.mapLedgerErr(err)
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", email, mapped, func() map[string]string {
			return map[string]string{
				"reason": "code_check",
			}
		})
		return nil, mapped
	}

	account, err := e.accountProvider.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrProviderAccountNotFound) {
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventVerifyFailure, false, "", email, ErrAccountNotFound, nil)
			return nil, ErrAccountNotFound
		}
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", email, ErrProviderUnavailable, nil)
		return nil, ErrProviderUnavailable
	}

	if account.Verified {
		e.metricInc(MetricVerifyAlreadyVerified)
		e.emitAudit(ctx, auditEventVerifyFailure, false, account.ID, email, ErrAlreadyVerified, nil)
		return nil, ErrAlreadyVerified
	}

	account, err = e.accountProvider.MarkVerified(ctx, email)
	if err != nil {
		if errors.Is(err, ErrProviderAlreadyVerified) {
			e.metricInc(MetricVerifyAlreadyVerified)
			e.emitAudit(ctx, auditEventVerifyFailure, false, account.ID, email, ErrAlreadyVerified, func() map[string]string {
				return map[string]string{
					"reason": "concurrent_verification",
				}
			})
			return nil, ErrAlreadyVerified
		}
		if errors.Is(err, ErrProviderAccountNotFound) {
			e.metricInc(MetricVerifyFailure)
			e.emitAudit(ctx, auditEventVerifyFailure, false, "", email, ErrAccountNotFound, nil)
			return nil, ErrAccountNotFound
		}
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, "", email, ErrProviderUnavailable, nil)
		return nil, ErrProviderUnavailable
	}

	// Purge is best-effort; a leftover code is harmless because the verified
	// flag now rejects any replay.
	if err := e.codes.Purge(ctx, email); err != nil {
		log.Print("authcore: code purge failed after verification")
	}

	session, err := e.issueSession(ctx, account)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		e.emitAudit(ctx, auditEventVerifyFailure, false, account.ID, email, err, func() map[string]string {
			return map[string]string{
				"reason": "issue_session_failed",
			}
		})
		return nil, err
	}

	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditEventVerifySuccess, true, account.ID, email, nil, nil)

	return session, nil
}
