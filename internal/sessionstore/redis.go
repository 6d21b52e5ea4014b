// Package sessionstore keeps live attendance rooms in an expiring key-value
// store.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/repository"
)

// DefaultKeyPrefix namespaces every key this package writes.
const DefaultKeyPrefix = "rcos:"

// putScript replaces a meeting's room. KEYS: room, code, pending.
// ARGV: code key prefix, ttl ms, meeting id, code, opened by, opened at ms,
// expires at ms, verification rate.
var putScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[1], 'code')
if old then
  local oldKey = ARGV[1] .. old
  if redis.call('GET', oldKey) == ARGV[3] then
    redis.call('DEL', oldKey)
  end
end
redis.call('DEL', KEYS[1], KEYS[3])
redis.call('HSET', KEYS[1],
  'meeting_id', ARGV[3], 'code', ARGV[4], 'opened_by', ARGV[5],
  'opened_at', ARGV[6], 'expires_at', ARGV[7], 'verification_rate', ARGV[8])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
redis.call('SET', KEYS[2], ARGV[3], 'PX', ARGV[2])
return 1
`)

// deleteScript removes a room only when the presented code is current.
// KEYS: room, code, pending. ARGV: code.
var deleteScript = redis.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code then return 0 end
if code ~= ARGV[1] then return -1 end
redis.call('DEL', KEYS[1], KEYS[2], KEYS[3])
return 1
`)

// markPendingScript adds a user to the pending set of the room holding the
// given code; the set expires with the room. KEYS: room, pending.
// ARGV: code, user id.
var markPendingScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'code') ~= ARGV[1] then return 0 end
redis.call('SADD', KEYS[2], ARGV[2])
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
  redis.call('PEXPIRE', KEYS[2], ttl)
end
return 1
`)

// Redis stores rooms in Redis and lets it expire them.
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ attendance.RoomStore = (*Redis)(nil)

// NewRedis creates a Redis-backed room store.
func NewRedis(client redis.UniversalClient, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Redis{client: client, keyPrefix: keyPrefix}
}

// RedisOptions configures Connect.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a client and verifies the server answers.
func Connect(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

func (s *Redis) roomKey(meetingID string) string {
	return fmt.Sprintf("%sattendance:room:%s", s.keyPrefix, meetingID)
}

func (s *Redis) codePrefix() string {
	return s.keyPrefix + "attendance:code:"
}

func (s *Redis) codeKey(code string) string {
	return s.codePrefix() + code
}

func (s *Redis) pendingKey(meetingID string) string {
	return fmt.Sprintf("%sattendance:pending:%s", s.keyPrefix, meetingID)
}

func (s *Redis) Put(ctx context.Context, room attendance.Room, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: ttl must be positive", repository.ErrInvalidInput)
	}
	keys := []string{s.roomKey(room.MeetingID), s.codeKey(room.Code), s.pendingKey(room.MeetingID)}
	err := putScript.Run(ctx, s.client, keys,
		s.codePrefix(),
		ttl.Milliseconds(),
		room.MeetingID,
		room.Code,
		room.OpenedBy,
		room.OpenedAt.UnixMilli(),
		room.ExpiresAt.UnixMilli(),
		strconv.FormatFloat(room.VerificationRate, 'f', -1, 64),
	).Err()
	if err != nil {
		return fmt.Errorf("redis: put room %s: %w", room.MeetingID, err)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, meetingID string) (*attendance.Room, error) {
	key := s.roomKey(meetingID)
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get room %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, repository.ErrNotFound
	}
	room, err := decodeRoom(fields)
	if err != nil {
		return nil, fmt.Errorf("redis: decode room %s: %w", key, err)
	}
	return room, nil
}

func (s *Redis) LookupCode(ctx context.Context, code string) (string, error) {
	meetingID, err := s.client.Get(ctx, s.codeKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis: lookup code: %w", err)
	}
	return meetingID, nil
}

func (s *Redis) Delete(ctx context.Context, meetingID, code string) error {
	keys := []string{s.roomKey(meetingID), s.codeKey(code), s.pendingKey(meetingID)}
	res, err := deleteScript.Run(ctx, s.client, keys, code).Int()
	if err != nil {
		return fmt.Errorf("redis: delete room %s: %w", meetingID, err)
	}
	switch res {
	case 0:
		return repository.ErrNotFound
	case -1:
		return repository.ErrConflict
	}
	return nil
}

func (s *Redis) MarkPending(ctx context.Context, room attendance.Room, userID string) error {
	keys := []string{s.roomKey(room.MeetingID), s.pendingKey(room.MeetingID)}
	res, err := markPendingScript.Run(ctx, s.client, keys, room.Code, userID).Int()
	if err != nil {
		return fmt.Errorf("redis: mark pending %s: %w", room.MeetingID, err)
	}
	if res == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Redis) IsPending(ctx context.Context, meetingID, userID string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.pendingKey(meetingID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check pending %s: %w", meetingID, err)
	}
	return ok, nil
}

func (s *Redis) ClearPending(ctx context.Context, meetingID, userID string) (bool, error) {
	n, err := s.client.SRem(ctx, s.pendingKey(meetingID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("redis: clear pending %s: %w", meetingID, err)
	}
	return n > 0, nil
}

// Pending lists the users awaiting verification in a meeting's room.
func (s *Redis) Pending(ctx context.Context, meetingID string) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.pendingKey(meetingID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list pending %s: %w", meetingID, err)
	}
	if members == nil {
		members = []string{}
	}
	sort.Strings(members)
	return members, nil
}

func decodeRoom(fields map[string]string) (*attendance.Room, error) {
	openedAt, err := strconv.ParseInt(fields["opened_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("opened_at: %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("expires_at: %w", err)
	}
	var rate float64
	if raw := fields["verification_rate"]; raw != "" {
		rate, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("verification_rate: %w", err)
		}
	}
	return &attendance.Room{
		MeetingID:        fields["meeting_id"],
		Code:             fields["code"],
		OpenedBy:         fields["opened_by"],
		OpenedAt:         time.UnixMilli(openedAt).UTC(),
		ExpiresAt:        time.UnixMilli(expiresAt).UTC(),
		VerificationRate: rate,
	}, nil
}
