// Package auth binds API callers to their catalog workspace through a session cookie.
//
// Session keys should be 32 or 64 bytes for HMAC authentication,
// and 16, 24, or 32 bytes for AES encryption. Production deployments
// must use cryptographically random keys generated with:
//
//	openssl rand -base64 32
package auth

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

// SessionMaxAge is how long a workspace cookie stays valid after it is bound.
// Idle workspaces are expired on the same schedule by default.
const SessionMaxAge = 7 * 24 * time.Hour

const sessionKeyPrefix = "catalog:session:"

// ErrUnsupportedSessionValue is returned by RedisStore.Save when a session
// holds anything other than string keys and values.
var ErrUnsupportedSessionValue = errors.New("session values must be strings")

// sessionOptions is shared by both stores so the cookie behaves the same with
// or without Redis.
func sessionOptions(secureCookie bool) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   int(SessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionKey returns the Redis key holding session id.
func SessionKey(id string) string {
	return sessionKeyPrefix + id
}

// RedisStore is a sessions.Store that keeps session values in a Redis hash.
// Only the encrypted session ID travels in the cookie.
//
// A session holds the caller's workspace_id, so the hash at
// "catalog:session:<id>" can be read directly with HGETALL when tracing a
// caller to a workspace. The key expires with the cookie.
type RedisStore struct {
	client  *redis.Client
	codecs  []securecookie.Codec
	options *sessions.Options
}

// NewSessionStore creates a Redis-backed session store.
//
//   - client: from pkg/cache.RedisClient.Client()
//   - authKey: 32 or 64 bytes for HMAC authentication
//   - encryptionKey: 16, 24, or 32 bytes for AES encryption of the session ID
//   - secureCookie: true in production (HTTPS only)
//
// A workspace dropped for inactivity or capacity is recreated empty the next
// time a session naming it arrives, as is every workspace after an API restart.
func NewSessionStore(client *redis.Client, authKey, encryptionKey []byte, secureCookie bool) *RedisStore {
	return &RedisStore{
		client:  client,
		codecs:  securecookie.CodecsFromPairs(authKey, encryptionKey),
		options: sessionOptions(secureCookie),
	}
}

// NewCookieSessionStore returns a stateless cookie store for deployments that run
// without Redis. The workspace ID is the only value kept in the session, so the
// whole session fits in the encrypted cookie.
func NewCookieSessionStore(authKey, encryptionKey []byte, secureCookie bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(authKey, encryptionKey)
	store.Options = sessionOptions(secureCookie)
	return store
}

// Get returns the request's session, loading it from Redis on first access.
func (s *RedisStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New decodes the session ID from the cookie and loads its values. A missing,
// tampered, or expired session yields a fresh one rather than an error.
func (s *RedisStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.codecs...); err != nil {
		return session, nil
	}

	session.ID = id
	found, err := s.load(r.Context(), session)
	if err != nil || !found {
		return session, nil
	}
	session.IsNew = false
	return session, nil
}

// Save writes the session hash and the cookie. A negative MaxAge deletes both.
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.client.Del(r.Context(), SessionKey(session.ID)).Err(); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = strings.TrimRight(
			base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)),
			"=",
		)
	}
	if err := s.save(r.Context(), session); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func (s *RedisStore) save(ctx context.Context, session *sessions.Session) error {
	fields := make(map[string]any, len(session.Values))
	for k, v := range session.Values {
		key, ok := k.(string)
		if !ok {
			return fmt.Errorf("%w: key %v", ErrUnsupportedSessionValue, k)
		}
		val, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedSessionValue, key)
		}
		fields[key] = val
	}

	key := SessionKey(session.ID)
	ttl := time.Duration(session.Options.MaxAge) * time.Second
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write session hash: %w", err)
	}
	return nil
}

// load fills session.Values from Redis and reports whether the hash existed.
func (s *RedisStore) load(ctx context.Context, session *sessions.Session) (bool, error) {
	fields, err := s.client.HGetAll(ctx, SessionKey(session.ID)).Result()
	if err != nil {
		return false, fmt.Errorf("read session hash: %w", err)
	}
	if len(fields) == 0 {
		return false, nil
	}
	for k, v := range fields {
		session.Values[k] = v
	}
	return true, nil
}
