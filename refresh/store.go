package refresh

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const recordVersionV1 = 1

var (
	// ErrNotFound is an exported constant or variable used by the lifecycle engine.
	ErrNotFound = errors.New("refresh token record not found")
	// ErrUnavailable is an exported constant or variable used by the lifecycle engine.
	ErrUnavailable = errors.New("refresh token redis unavailable")
)

// Record is the allow-list entry kept per live refresh token.
//
// Record instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Record struct {
	AccountID string
	IssuedAt  int64
}

// Store defines a public type used by authcore APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	redis  *redis.Client
	prefix string
}

// NewStore describes the newstore operation and its observable behavior.
//
// NewStore may return an error when input validation, dependency calls, or security checks fail.
// NewStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewStore(redisClient *redis.Client, prefix string) *Store {
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) key(token string) string {
	digest := sha256.Sum256([]byte(token))
	return s.prefix + ":" + base64.RawURLEncoding.EncodeToString(digest[:])
}

// Save describes the save operation and its observable behavior.
//
// Save may return an error when input validation, dependency calls, or security checks fail.
// Save does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Save(ctx context.Context, token string, record Record, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("refresh record ttl must be > 0")
	}

	encoded, err := encodeRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(token), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Find describes the find operation and its observable behavior.
//
// Find may return an error when input validation, dependency calls, or security checks fail.
// Find does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Find(ctx context.Context, token string) (Record, error) {
	data, err := s.redis.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return decodeRecord(data)
}

// Consume atomically removes and returns the record for token. GETDEL
// guarantees that when two callers race on the same token, exactly one
// receives the record and the other gets [ErrNotFound].
//
// Consume may return an error when input validation, dependency calls, or security checks fail.
// Consume does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Consume(ctx context.Context, token string) (Record, error) {
	data, err := s.redis.GetDel(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return decodeRecord(data)
}

// Delete removes the record for token. Deleting an absent record is not an
// error; the boolean reports whether a live record was actually removed.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Delete(ctx context.Context, token string) (bool, error) {
	removed, err := s.redis.Del(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return removed > 0, nil
}

func encodeRecord(record Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}

	if len(record.AccountID) > 65535 {
		return nil, errors.New("refresh record account id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.AccountID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.AccountID)

	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Record{}, err
	}
	if version != recordVersionV1 {
		return Record{}, errors.New("invalid refresh record version")
	}

	var record Record
	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return Record{}, err
	}

	var accountIDLen uint16
	if err := binary.Read(reader, binary.BigEndian, &accountIDLen); err != nil {
		return Record{}, err
	}

	accountID := make([]byte, accountIDLen)
	if _, err := io.ReadFull(reader, accountID); err != nil {
		return Record{}, err
	}
	record.AccountID = string(accountID)

	return record, nil
}
