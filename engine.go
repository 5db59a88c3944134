package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/refresh"
)

// Engine defines a public type used by authcore APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config          Config
	codes           *otp.Ledger
	refreshStore    *refresh.Store
	audit           *auditDispatcher
	metrics         *Metrics
	passwordHash    *password.Hasher
	jwtManager      *jwt.Manager
	accountProvider AccountProvider
	mailer          Mailer
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// issueSession mints an access/refresh pair for account and records the
// refresh token in the allow-list. The record TTL matches the refresh
// signature lifetime, so superseded records age out on their own.
func (e *Engine) issueSession(ctx context.Context, account Account) (*SessionResult, error) {
	access, err := e.jwtManager.CreateAccess(account.ID)
	if err != nil {
		return nil, err
	}

	refreshToken, err := e.jwtManager.CreateRefresh(account.ID)
	if err != nil {
		return nil, err
	}

	record := refresh.Record{
		AccountID: account.ID,
		IssuedAt:  time.Now().Unix(),
	}
	if err := e.refreshStore.Save(ctx, refreshToken, record, e.config.JWT.RefreshTTL); err != nil {
		return nil, e.mapRefreshStoreErr(err)
	}

	return &SessionResult{
		AccessToken:  access,
		RefreshToken: refreshToken,
		Account:      account.view(),
	}, nil
}

// Refresh rotates a refresh token: the presented token is consumed atomically
// and a fresh pair is issued. A token that was already consumed, logged out,
// or never issued fails with [ErrRefreshRevoked]; under two concurrent
// rotations of the same token exactly one caller wins.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e.jwtManager == nil || e.refreshStore == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "parse_failed",
			}
		})
		return TokenPair{}, ErrRefreshInvalid
	}

	record, err := e.refreshStore.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			e.metricInc(MetricRefreshReuseDetected)
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, claims.Subject, "", ErrRefreshRevoked, nil)
			return TokenPair{}, ErrRefreshRevoked
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, "", ErrTokenStoreUnavailable, func() map[string]string {
			return map[string]string{
				"reason": "consume_failed",
			}
		})
		return TokenPair{}, e.mapRefreshStoreErr(err)
	}

	access, err := e.jwtManager.CreateAccess(record.AccountID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, record.AccountID, "", err, func() map[string]string {
			return map[string]string{
				"reason": "issue_access_failed",
			}
		})
		return TokenPair{}, err
	}

	nextRefresh, err := e.jwtManager.CreateRefresh(record.AccountID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, record.AccountID, "", err, func() map[string]string {
			return map[string]string{
				"reason": "issue_refresh_failed",
			}
		})
		return TokenPair{}, err
	}

	next := refresh.Record{
		AccountID: record.AccountID,
		IssuedAt:  time.Now().Unix(),
	}
	if err := e.refreshStore.Save(ctx, nextRefresh, next, e.config.JWT.RefreshTTL); err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, record.AccountID, "", ErrTokenStoreUnavailable, func() map[string]string {
			return map[string]string{
				"reason": "save_failed",
			}
		})
		return TokenPair{}, e.mapRefreshStoreErr(err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, record.AccountID, "", nil, nil)

	return TokenPair{
		AccessToken:  access,
		RefreshToken: nextRefresh,
	}, nil
}

// Logout revokes the presented refresh token and reports whether a live
// record was actually removed. Logging out a token that is already revoked or
// was never issued is not an error; a token that does not parse at all fails
// with [ErrRefreshInvalid].
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, refreshToken string) (bool, error) {
	if e.jwtManager == nil || e.refreshStore == nil {
		return false, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, "", "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "parse_failed",
			}
		})
		return false, ErrRefreshInvalid
	}

	removed, err := e.refreshStore.Delete(ctx, refreshToken)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, claims.Subject, "", ErrTokenStoreUnavailable, nil)
		return false, e.mapRefreshStoreErr(err)
	}

	if removed {
		e.metricInc(MetricLogout)
	}
	e.emitAudit(ctx, auditEventLogoutSession, true, claims.Subject, "", nil, func() map[string]string {
		return map[string]string{
			"removed": boolString(removed),
		}
	})

	return removed, nil
}

// VerifyAccess validates an access token and extracts its identity. The check
// is pure signature and claim verification, no Redis round-trip; any failure
// collapses to [ErrUnauthorized].
//
// VerifyAccess may return an error when input validation, dependency calls, or security checks fail.
// VerifyAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyAccess(tokenStr string) (AccessIdentity, error) {
	if e.jwtManager == nil {
		return AccessIdentity{}, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		return AccessIdentity{}, ErrUnauthorized
	}

	identity := AccessIdentity{
		AccountID: claims.Subject,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}

	return identity, nil
}

func (e *Engine) mapRefreshStoreErr(err error) error {
	if errors.Is(err, refresh.ErrUnavailable) {
		return ErrTokenStoreUnavailable
	}
	return err
}

func (e *Engine) mapLedgerErr(err error) error {
	switch {
	case errors.Is(err, otp.ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, otp.ErrExpired):
		return ErrCodeExpired
	case errors.Is(err, otp.ErrMismatch):
		return ErrCodeMismatch
	case errors.Is(err, otp.ErrUnavailable):
		return ErrCodeLedgerUnavailable
	default:
		return err
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
