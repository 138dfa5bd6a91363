package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/cryptox"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisAuthority reads sessions stored as JSON under <prefix>:session:<id>.
// The argon2id hash of the trusted-client credential lives under
// <prefix>:trusted-client.
type RedisAuthority struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time

	mu       sync.Mutex
	verified map[string]struct{}
}

func NewRedisAuthority(rdb redis.UniversalClient, prefix string) *RedisAuthority {
	if prefix == "" {
		prefix = "gophrelay"
	}
	return &RedisAuthority{
		rdb:      rdb,
		prefix:   prefix,
		now:      time.Now,
		verified: make(map[string]struct{}),
	}
}

func (a *RedisAuthority) sessionKey(id uuid.UUID) string {
	return a.prefix + ":session:" + id.String()
}

func (a *RedisAuthority) trustedKey() string {
	return a.prefix + ":trusted-client"
}

func (a *RedisAuthority) FindSessionTrusted(ctx context.Context, credential string, id uuid.UUID) (*models.Session, error) {
	if err := a.VerifyTrusted(ctx, credential); err != nil {
		return nil, err
	}
	return a.load(ctx, id)
}

func (a *RedisAuthority) FindSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess, err := a.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, common.ErrSessionNotFound
	}
	return sess, nil
}

// VerifyTrusted compares credential with the stored hash. Successful pairs are
// remembered so argon2 runs once per credential and hash.
func (a *RedisAuthority) VerifyTrusted(ctx context.Context, credential string) error {
	encoded, err := a.rdb.Get(ctx, a.trustedKey()).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: no trusted client registered", common.ErrConfigurationFatal)
	}
	if err != nil {
		return fmt.Errorf("redis get trusted client: %w", err)
	}

	cacheKey := encoded + "\x00" + credential
	a.mu.Lock()
	_, ok := a.verified[cacheKey]
	a.mu.Unlock()
	if ok {
		return nil
	}

	match, err := cryptox.VerifyCredential(encoded, []byte(credential))
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigurationFatal, err)
	}
	if !match {
		return common.ErrConfigurationFatal
	}

	a.mu.Lock()
	a.verified[cacheKey] = struct{}{}
	a.mu.Unlock()
	return nil
}

func (a *RedisAuthority) load(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	data, err := a.rdb.Get(ctx, a.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var sess models.Session
	if err := sonic.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if sess.Expired(a.now()) {
		return nil, nil
	}
	return &sess, nil
}

// Save stores sess with a TTL matching its expiry. It is used by operators and
// tests; the gateway never creates sessions.
func (a *RedisAuthority) Save(ctx context.Context, sess *models.Session) error {
	var ttl time.Duration
	if !sess.ExpiresAt.IsZero() {
		ttl = sess.ExpiresAt.Sub(a.now())
		if ttl <= 0 {
			return fmt.Errorf("session %s already expired", sess.ID)
		}
	}

	data, err := sonic.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := a.rdb.Set(ctx, a.sessionKey(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// RegisterTrustedClient stores an argon2id hash produced by
// cryptox.HashCredential.
func (a *RedisAuthority) RegisterTrustedClient(ctx context.Context, encodedHash string) error {
	if err := a.rdb.Set(ctx, a.trustedKey(), encodedHash, 0).Err(); err != nil {
		return fmt.Errorf("redis set trusted client: %w", err)
	}
	return nil
}
