package session

import (
	"context"
	"encoding/json"

	"vatelanka-driver/internal/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	keyDriverSession   = "driverSession"
	keyProviderSession = "providerSession"
)

// ErrIncompleteSession is returned by Save for a session that would not pass validation
var ErrIncompleteSession = errors.New("session is missing required driver fields")

// Store persists the driver session across restarts
type Store interface {
	Save(ctx context.Context, s *models.Session) error
	// Load returns nil, nil when there is no valid session
	Load(ctx context.Context) (*models.Session, error)
	Clear(ctx context.Context) error
}

// RedisStore keeps the session under two redundant keys
type RedisStore struct {
	c      *redis.Client
	prefix string
}

func NewRedisStore(c *redis.Client, prefix string) *RedisStore {
	return &RedisStore{c: c, prefix: prefix}
}

func (r *RedisStore) key(name string) string {
	return r.prefix + name
}

func (r *RedisStore) Save(ctx context.Context, s *models.Session) error {
	if !s.Valid() {
		return ErrIncompleteSession
	}

	b, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshal session")
	}

	pipe := r.c.TxPipeline()
	pipe.Set(ctx, r.key(keyDriverSession), b, 0)
	pipe.Set(ctx, r.key(keyProviderSession), b, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "redis save session")
	}
	return nil
}

// Load reads the primary key, then the fallback. A session that fails
// validation is cleared and reported as absent.
func (r *RedisStore) Load(ctx context.Context) (*models.Session, error) {
	for _, name := range []string{keyDriverSession, keyProviderSession} {
		b, err := r.c.Get(ctx, r.key(name)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "redis load session")
		}

		var s models.Session
		if err := json.Unmarshal(b, &s); err != nil || !s.Valid() {
			if err := r.Clear(ctx); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return &s, nil
	}
	return nil, nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.c.Del(ctx, r.key(keyDriverSession), r.key(keyProviderSession)).Err(); err != nil {
		return errors.Wrap(err, "redis clear session")
	}
	return nil
}
