package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Store is the session persistence contract. Implemented on Redis in
// production and by in-memory fakes in tests.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	ResolveRefresh(ctx context.Context, refreshToken string) (string, error)
	Update(ctx context.Context, s *Session) error
	Rotate(ctx context.Context, oldToken, newToken string) (*Session, error)
	Invalidate(ctx context.Context, sessionID string) error
	InvalidateAllForUser(ctx context.Context, userID string) (int, error)
	ListForUser(ctx context.Context, userID string) ([]Session, error)
	BlacklistJTI(ctx context.Context, jti string, ttl time.Duration) error
	IsJTIBlacklisted(ctx context.Context, jti string) (bool, error)
}

type redisStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewStore creates a Redis-backed session store. A non-positive ttl falls
// back to DefaultTTL.
func NewStore(rdb *goredis.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisStore{rdb: rdb, ttl: ttl}
}

// rotateScript retires the old refresh mapping and installs the new one as a
// single compare-and-swap on the refresh:<old> key: of N concurrent refreshes
// presenting the same token, exactly one observes the mapping and wins, the
// rest see the replay marker. The session record itself is returned untouched
// and rewritten by the caller in Go. cjson collapses an empty array into an
// empty object, so the script must never re-encode the session JSON.
//
// KEYS[1] = session:<id>, KEYS[2] = refresh:<old>, KEYS[3] = refresh:<new>
// ARGV[1] = session id, ARGV[2] = ttl seconds
//
// Returns 0 if the session is gone, 1 if the token was already rotated,
// otherwise the current session JSON.
var rotateScript = goredis.NewScript(`
local sid = redis.call('GET', KEYS[2])
if not sid or sid ~= ARGV[1] then
  return 1
end
local raw = redis.call('GET', KEYS[1])
if not raw then
  redis.call('DEL', KEYS[2])
  return 0
end
local ttl = tonumber(ARGV[2])
redis.call('DEL', KEYS[2])
redis.call('SET', KEYS[3], sid, 'EX', ttl)
redis.call('EXPIRE', KEYS[1], ttl)
return raw
`)

func (s *redisStore) Create(ctx context.Context, sess *Session) error {
	if sess.UserID == "" {
		return fmt.Errorf("create session: user id is empty")
	}
	if sess.RefreshToken == "" {
		return fmt.Errorf("create session: refresh token is empty")
	}

	now := time.Now().UTC()
	sess.ID = uuid.Must(uuid.NewV7()).String()
	sess.CreatedAt = now
	sess.LastRefreshedAt = now

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, redisKeySession(sess.ID), raw, s.ttl)
	pipe.Set(ctx, redisKeyRefresh(sess.RefreshToken), sess.ID, s.ttl)
	pipe.SAdd(ctx, redisKeyUserSessions(sess.UserID), sess.ID)
	pipe.Expire(ctx, redisKeyUserSessions(sess.UserID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	return nil
}

func (s *redisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, redisKeySession(sessionID)).Bytes()
	if err == goredis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// ResolveRefresh returns the session id the refresh token currently maps to.
func (s *redisStore) ResolveRefresh(ctx context.Context, refreshToken string) (string, error) {
	id, err := s.rdb.Get(ctx, redisKeyRefresh(refreshToken)).Result()
	if err == goredis.Nil {
		return "", ErrRefreshNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get refresh mapping: %w", err)
	}
	return id, nil
}

// Update rewrites the session record in place, keeping its remaining TTL.
// Used when the active organization changes mid-session.
func (s *redisStore) Update(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ok, err := s.rdb.SetXX(ctx, redisKeySession(sess.ID), raw, goredis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *redisStore) Rotate(ctx context.Context, oldToken, newToken string) (*Session, error) {
	sessionID, err := s.rdb.Get(ctx, redisKeyRefresh(oldToken)).Result()
	if err == goredis.Nil {
		return nil, ErrRefreshNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get refresh mapping: %w", err)
	}

	keys := []string{
		redisKeySession(sessionID),
		redisKeyRefresh(oldToken),
		redisKeyRefresh(newToken),
	}
	args := []any{sessionID, int(s.ttl.Seconds())}

	res, err := rotateScript.Run(ctx, s.rdb, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	var raw string
	switch v := res.(type) {
	case int64:
		if v == 0 {
			return nil, ErrRefreshNotFound
		}
		return nil, ErrRefreshReplayed
	case string:
		raw = v
	default:
		return nil, fmt.Errorf("rotate session: unexpected script result %T", res)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal rotated session: %w", err)
	}
	sess.RefreshToken = newToken
	sess.LastRefreshedAt = time.Now().UTC()

	out, err := json.Marshal(&sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.rdb.SetXX(ctx, redisKeySession(sess.ID), out, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("update rotated session: %w", err)
	}
	if !ok {
		// Session invalidated mid-rotation; the new mapping the script
		// installed points at a dead record and ages out with its TTL.
		return nil, ErrRefreshNotFound
	}
	return &sess, nil
}

func (s *redisStore) Invalidate(ctx context.Context, sessionID string) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, redisKeySession(sessionID))
	pipe.Del(ctx, redisKeyRefresh(sess.RefreshToken))
	pipe.SRem(ctx, redisKeyUserSessions(sess.UserID), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

func (s *redisStore) InvalidateAllForUser(ctx context.Context, userID string) (int, error) {
	setKey := redisKeyUserSessions(userID)
	ids, err := s.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}

	count := 0
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return count, err
		}

		pipe := s.rdb.TxPipeline()
		pipe.Del(ctx, redisKeySession(id))
		pipe.Del(ctx, redisKeyRefresh(sess.RefreshToken))
		if _, err := pipe.Exec(ctx); err != nil {
			return count, fmt.Errorf("invalidate session %s: %w", id, err)
		}
		count++
	}

	if err := s.rdb.Del(ctx, setKey).Err(); err != nil {
		return count, fmt.Errorf("clear user session index: %w", err)
	}
	return count, nil
}

func (s *redisStore) ListForUser(ctx context.Context, userID string) ([]Session, error) {
	setKey := redisKeyUserSessions(userID)
	ids, err := s.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}

	sessions := make([]Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err == ErrNotFound {
			// Session expired out from under the index; prune the member.
			s.rdb.SRem(ctx, setKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, nil
}

func (s *redisStore) BlacklistJTI(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired; nothing worth storing.
		return nil
	}
	if err := s.rdb.Set(ctx, redisKeyBlacklist(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist jti: %w", err)
	}
	return nil
}

func (s *redisStore) IsJTIBlacklisted(ctx context.Context, jti string) (bool, error) {
	err := s.rdb.Get(ctx, redisKeyBlacklist(jti)).Err()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return true, nil
}
