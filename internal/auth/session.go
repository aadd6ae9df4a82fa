package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const SessionCookie = "session"

// Session is the identity attached to a request. The zero value is an
// anonymous session.
type Session struct {
	ID       string
	Username string
}

// LoggedIn reports whether the session carries an identity.
func (s Session) LoggedIn() bool { return s.Username != "" }

// Is reports whether the session is logged in as exactly username.
func (s Session) Is(username string) bool {
	return s.LoggedIn() && s.Username == username
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// CurrentSession returns the session loaded for r, or an anonymous one.
func CurrentSession(r *http.Request) Session {
	s, _ := r.Context().Value(sessionKey{}).(Session)
	return s
}

// SessionStore wraps Redis for session management.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func sessionKeyFor(sid string) string       { return "session:" + sid }
func userSessionsKey(username string) string { return "user_sessions:" + username }

// Create stores a new session mapping sessionID -> username and indexes it
// under the user so all of a user's sessions can be revoked at once.
func (s *SessionStore) Create(ctx context.Context, username string) (string, error) {
	sid := uuid.New().String()
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKeyFor(sid), username, s.ttl)
		p.SAdd(ctx, userSessionsKey(username), sid)
		p.Expire(ctx, userSessionsKey(username), s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return sid, nil
}

// Get returns the username for a session, or "" if not found / expired.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (string, error) {
	val, err := s.rdb.Get(ctx, sessionKeyFor(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	return val, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, sessionID, username string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKeyFor(sessionID))
		if username != "" {
			p.SRem(ctx, userSessionsKey(username), sessionID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// revokeScript deletes a user's session index and every session it lists
// atomically. A session created concurrently is either revoked or indexed.
var revokeScript = redis.NewScript(`
local sids = redis.call('SMEMBERS', KEYS[1])
for _, sid in ipairs(sids) do
	redis.call('DEL', ARGV[1] .. sid)
end
redis.call('DEL', KEYS[1])
return #sids
`)

// DeleteAll removes every session of username.
func (s *SessionStore) DeleteAll(ctx context.Context, username string) error {
	err := revokeScript.Run(ctx, s.rdb, []string{userSessionsKey(username)}, sessionKeyFor("")).Err()
	if err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}

// Sessions ties the Redis store to the signed session cookie.
type Sessions struct {
	store  *SessionStore
	secret []byte
	ttl    time.Duration
	secure bool
}

func NewSessions(store *SessionStore, secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{store: store, secret: []byte(secret), ttl: ttl, secure: secure}
}

// Load resolves the request's cookie to a Session. A missing, forged or
// expired cookie yields an anonymous session and no error.
func (m *Sessions) Load(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return Session{}, nil
	}
	sid, err := parseSessionID(cookie.Value, m.secret)
	if err != nil {
		return Session{}, nil
	}
	username, err := m.store.Get(r.Context(), sid)
	if err != nil {
		return Session{}, err
	}
	if username == "" {
		return Session{}, nil
	}
	return Session{ID: sid, Username: username}, nil
}

// Set logs the client in as username, replacing whatever session the
// request already carried.
func (m *Sessions) Set(w http.ResponseWriter, r *http.Request, username string) (Session, error) {
	ctx := r.Context()
	if prev := CurrentSession(r); prev.ID != "" {
		if err := m.store.Delete(ctx, prev.ID, prev.Username); err != nil {
			return Session{}, err
		}
	}
	sid, err := m.store.Create(ctx, username)
	if err != nil {
		return Session{}, err
	}
	value, err := signSessionID(sid, m.secret, m.ttl)
	if err != nil {
		_ = m.store.Delete(ctx, sid, username)
		return Session{}, fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl / time.Second),
	})
	return Session{ID: sid, Username: username}, nil
}

// Clear logs the client out. The cookie is expired even if the store call
// fails.
func (m *Sessions) Clear(ctx context.Context, w http.ResponseWriter, s Session) error {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	if s.ID == "" {
		return nil
	}
	return m.store.Delete(ctx, s.ID, s.Username)
}

// RevokeAll ends every session of username, on any client.
func (m *Sessions) RevokeAll(ctx context.Context, username string) error {
	return m.store.DeleteAll(ctx, username)
}
