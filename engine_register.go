package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	msgVerificationCodeSent  = "We sent you a verification code, Check your mails!"
	msgVerifyYourAccount     = "Please verify your account"
	msgCodeSent              = "We sent you an OTP, Check your mail!"
	msgPasswordResetCodeSent = "We sent you a password reset code, Check your mail!"
	msgPasswordResetDone     = "Password reset successfully"
)

// Register creates an unverified account and sends a verification code to its
// e-mail. The account exists after a delivery failure; callers recover with
// [Engine.RequestCode] rather than re-registering.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*PendingVerification, error) {
	if e.accountProvider == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}
	if input.FirstName == "" || input.LastName == "" || input.Email == "" ||
		input.Username == "" || input.Password == "" {
		return nil, errors.New("register requires first name, last name, email, username and password")
	}

	if _, err := e.accountProvider.GetByUsername(ctx, input.Username); err == nil {
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", input.Email, ErrUsernameTaken, func() map[string]string {
			return map[string]string{
				"username": input.Username,
			}
		})
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrProviderAccountNotFound) {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", input.Email, ErrProviderUnavailable, nil)
		return nil, ErrProviderUnavailable
	}

	if _, err := e.accountProvider.GetByEmail(ctx, input.Email); err == nil {
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", input.Email, ErrEmailTaken, nil)
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrProviderAccountNotFound) {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", input.Email, ErrProviderUnavailable, nil)
		return nil, ErrProviderUnavailable
	}

	hash, err := e.passwordHash.Hash(input.Password)
	if err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", input.Email, ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "hash_policy",
			}
		})
		return nil, ErrPasswordPolicy
	}
	input.Password = ""

	account, err := e.accountProvider.Create(ctx, CreateAccountInput{
		ID:           uuid.NewString(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hash,
		Verified:     false,
	})
	if err != nil {
		if errors.Is(err, ErrProviderDuplicateAccount) {
			// Lost a race against a concurrent registration. Re-check the
			// username to report which identifier collided.
			e.metricInc(MetricRegisterDuplicate)
			if _, lookupErr := e.accountProvider.GetByUsername(ctx, input.Username); lookupErr == nil {
				e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", input.Email, ErrUsernameTaken, nil)
				return nil, ErrUsernameTaken
			}
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", input.Email, ErrEmailTaken, nil)
			return nil, ErrEmailTaken
		}
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", input.Email, ErrProviderUnavailable, nil)
		return nil, ErrProviderUnavailable
	}

	expiresAt, err := e.issueAndDeliverCode(ctx, account, PurposeEmailVerification)
	if err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, account.ID, account.Email, err, func() map[string]string {
			return map[string]string{
				"reason": "code_delivery",
			}
		})
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, account.ID, account.Email, nil, nil)

	return &PendingVerification{
		ExpiresAt: expiresAt,
		Message:   msgVerificationCodeSent,
	}, nil
}

// RequestCode issues a fresh one-time code for an existing account and
// delivers it by mail. The new code supersedes any outstanding code for the
// account. Requesting a verification code for an already verified account
// fails with [ErrAlreadyVerified].
//
// RequestCode may return an error when input validation, dependency calls, or security checks fail.
// RequestCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RequestCode(ctx context.Context, email string, purpose OTPPurpose) (*PendingVerification, error) {
	if e.accountProvider == nil || e.codes == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.accountProvider.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrProviderAccountNotFound) {
			e.emitAudit(ctx, auditEventCodeRequest, false, "", email, ErrAccountNotFound, nil)
			return nil, ErrAccountNotFound
		}
		e.emitAudit(ctx, auditEventCodeRequest, false, "", email, ErrProviderUnavailable, nil)
		return nil, ErrProviderUnavailable
	}

	if purpose == PurposeEmailVerification && account.Verified {
		e.emitAudit(ctx, auditEventCodeRequest, false, account.ID, email, ErrAlreadyVerified, nil)
		return nil, ErrAlreadyVerified
	}

	expiresAt, err := e.issueAndDeliverCode(ctx, account, purpose)
	if err != nil {
		e.emitAudit(ctx, auditEventCodeRequest, false, account.ID, email, err, nil)
		return nil, err
	}

	e.emitAudit(ctx, auditEventCodeRequest, true, account.ID, email, nil, func() map[string]string {
		return map[string]string{
			"purpose": purpose.String(),
		}
	})

	return &PendingVerification{
		ExpiresAt: expiresAt,
		Message:   msgCodeSent,
	}, nil
}

func (e *Engine) issueAndDeliverCode(ctx context.Context, account Account, purpose OTPPurpose) (time.Time, error) {
	policy := e.config.OTP.policyFor(purpose)

	code, expiresAt, err := e.codes.Issue(ctx, account.Email, byte(purpose), policy.Digits, policy.TTL)
	if err != nil {
		return time.Time{}, e.mapLedgerErr(err)
	}
	e.metricInc(MetricCodeIssued)

	body := mailBody(e.config.Mail.AppName, account.Username, code, purpose, policy.TTL)
	if err := e.mailer.Deliver(ctx, account.Email, mailSubject(purpose), body); err != nil {
		e.metricInc(MetricCodeDeliveryFailure)
		e.emitAudit(ctx, auditEventCodeDeliveryFailure, false, account.ID, account.Email, ErrMailDelivery, func() map[string]string {
			return map[string]string{
				"purpose": purpose.String(),
			}
		})
		return time.Time{}, ErrMailDelivery
	}

	return expiresAt, nil
}
