package otp

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore/internal"
)

const recordVersionV1 = 1

var (
	// ErrNotFound is an exported constant or variable used by the lifecycle engine.
	ErrNotFound = errors.New("otp record not found")
	// ErrExpired is an exported constant or variable used by the lifecycle engine.
	ErrExpired = errors.New("otp record expired")
	// ErrMismatch is an exported constant or variable used by the lifecycle engine.
	ErrMismatch = errors.New("otp secret mismatch")
	// ErrUnavailable is an exported constant or variable used by the lifecycle engine.
	ErrUnavailable = errors.New("otp redis unavailable")
)

type record struct {
	Purpose   byte
	CreatedAt int64
	ExpiresAt int64
	CodeHash  [32]byte
}

// Ledger defines a public type used by authcore APIs.
//
// Ledger instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Ledger struct {
	redis  *redis.Client
	prefix string
}

// NewLedger describes the newledger operation and its observable behavior.
//
// NewLedger may return an error when input validation, dependency calls, or security checks fail.
// NewLedger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewLedger(redisClient *redis.Client, prefix string) *Ledger {
	return &Ledger{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (l *Ledger) key(email string) string {
	return l.prefix + ":" + strings.ToLower(email)
}

// Issue generates a fresh numeric code, stores its digest, and returns the
// raw code with its expiry. The single SET supersedes any code previously
// issued for the e-mail, so at most one code per address can ever verify.
//
// Issue may return an error when input validation, dependency calls, or security checks fail.
// Issue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (l *Ledger) Issue(ctx context.Context, email string, purpose byte, digits int, ttl time.Duration) (string, time.Time, error) {
	if email == "" {
		return "", time.Time{}, errors.New("empty otp email")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("otp ttl must be > 0")
	}

	code, err := internal.NewOTP(digits)
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	rec := record{
		Purpose:   purpose,
		CreatedAt: now.Unix(),
		ExpiresAt: expiresAt.Unix(),
		CodeHash:  internal.HashSecret([]byte(code)),
	}

	encoded, err := encodeRecord(rec)
	if err != nil {
		return "", time.Time{}, err
	}

	if err := l.redis.Set(ctx, l.key(email), encoded, ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return code, expiresAt, nil
}

// Verify checks code against the live record for email. The comparison is
// constant time, and expiry is only reported once the hash has matched, so a
// caller can never use the error shape to distinguish a wrong guess against a
// live code from a wrong guess against a stale one. A wrong purpose is a
// mismatch, not a distinct failure. Verify never deletes the record; commit
// with [Ledger.Purge] after the surrounding state transition succeeds.
//
// Verify may return an error when input validation, dependency calls, or security checks fail.
// Verify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (l *Ledger) Verify(ctx context.Context, email, code string, purpose byte) error {
	data, err := l.redis.Get(ctx, l.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return err
	}

	providedHash := internal.HashSecret([]byte(code))
	if subtle.ConstantTimeCompare(rec.CodeHash[:], providedHash[:]) != 1 {
		return ErrMismatch
	}
	if rec.Purpose != purpose {
		return ErrMismatch
	}
	if time.Now().Unix() > rec.ExpiresAt {
		return ErrExpired
	}

	return nil
}

// Purge removes the record for email. Purging an absent record is not an
// error.
//
// Purge may return an error when input validation, dependency calls, or security checks fail.
// Purge does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (l *Ledger) Purge(ctx context.Context, email string) error {
	if err := l.redis.Del(ctx, l.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func encodeRecord(rec record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordVersionV1)
	buf.WriteByte(rec.Purpose)

	if err := binary.Write(&buf, binary.BigEndian, rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, rec.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(rec.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return record{}, err
	}
	if version != recordVersionV1 {
		return record{}, errors.New("invalid otp record version")
	}

	var rec record
	if rec.Purpose, err = reader.ReadByte(); err != nil {
		return record{}, err
	}
	if err := binary.Read(reader, binary.BigEndian, &rec.CreatedAt); err != nil {
		return record{}, err
	}
	if err := binary.Read(reader, binary.BigEndian, &rec.ExpiresAt); err != nil {
		return record{}, err
	}
	if _, err := io.ReadFull(reader, rec.CodeHash[:]); err != nil {
		return record{}, err
	}

	return rec, nil
}
