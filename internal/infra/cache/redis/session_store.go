package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainauth "roomchat/internal/domain/auth"
	domainuser "roomchat/internal/domain/user"
)

const defaultPrefix = "roomchat:session:"

// SessionStore keeps bearer sessions in Redis with a TTL matching their expiry
// and a per-user set of tokens for bulk revocation.
type SessionStore struct {
	Client goredis.UniversalClient
	Prefix string
	Now    func() time.Time
}

func NewSessionStore(client goredis.UniversalClient) *SessionStore {
	return &SessionStore{Client: client, Prefix: defaultPrefix}
}

// Connect parses a redis:// URL and verifies the server answers PING.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

type sessionPayload struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return domainauth.ErrTokenRequired
	}
	ttl := session.Remaining(s.now())
	if ttl <= 0 {
		return domainauth.ErrTTLInvalid
	}
	payload, err := json.Marshal(sessionPayload{
		Token:     string(session.Token),
		UserID:    string(session.UserID),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return err
	}
	userKey := s.userKey(session.UserID)
	pipe := s.Client.TxPipeline()
	pipe.Set(ctx, s.tokenKey(session.Token), payload, ttl)
	pipe.SAdd(ctx, userKey, string(session.Token))
	pipe.ExpireGT(ctx, userKey, ttl)
	pipe.ExpireNX(ctx, userKey, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	raw, err := s.Client.Get(ctx, s.tokenKey(token)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domainauth.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var payload sessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	session := &domainauth.Session{
		Token:     domainauth.Token(payload.Token),
		UserID:    domainuser.ID(payload.UserID),
		CreatedAt: payload.CreatedAt,
		ExpiresAt: payload.ExpiresAt,
	}
	if !session.ActiveAt(s.now()) {
		_ = s.Delete(ctx, token)
		return nil, domainauth.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	session, err := s.Get(ctx, token)
	if errors.Is(err, domainauth.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := s.Client.TxPipeline()
	pipe.Del(ctx, s.tokenKey(token))
	pipe.SRem(ctx, s.userKey(session.UserID), string(token))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	userKey := s.userKey(userID)
	tokens, err := s.Client.SMembers(ctx, userKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, s.tokenKey(domainauth.Token(token)))
	}
	keys = append(keys, userKey)
	return s.Client.Del(ctx, keys...).Err()
}

func (s *SessionStore) tokenKey(token domainauth.Token) string {
	return s.prefix() + "token:" + string(token)
}

func (s *SessionStore) userKey(userID domainuser.ID) string {
	return s.prefix() + "user:" + string(userID)
}

func (s *SessionStore) prefix() string {
	if s.Prefix == "" {
		return defaultPrefix
	}
	return s.Prefix
}

func (s *SessionStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
