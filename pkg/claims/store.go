package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisclient "github.com/sinavhub/sinavhub-backend/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

// Attribute keys understood by clients. Anything else (notably "admin") is
// opaque to this package and must be carried through untouched by callers.
const (
	AttrAdmin      = "admin"
	AttrPremium    = "premium"
	AttrPremiumExp = "premiumExp"
)

type claimsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type claimsKeyer interface {
	ClaimsKey(userID string) string
}

// Store persists per-user custom credential attributes. Writes are
// full-replace at this level, so callers must read, merge, and write back.
// Constructing an attribute map from scratch clobbers unrelated markers such
// as admin.
type Store struct {
	store claimsStore
	keyer claimsKeyer
}

// NewStore builds a claims store backed by Redis.
func NewStore(client *redisclient.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Store{store: client, keyer: client}, nil
}

// GetCustomClaims returns the user's attribute map; absent users get an empty map.
func (s *Store) GetCustomClaims(ctx context.Context, userID string) (map[string]any, error) {
	raw, err := s.store.Get(ctx, s.keyer.ClaimsKey(userID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("get claims: %w", err)
	}

	attrs := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	return attrs, nil
}

// SetCustomClaims replaces the user's attribute map wholesale.
func (s *Store) SetCustomClaims(ctx context.Context, userID string, attrs map[string]any) error {
	if attrs == nil {
		attrs = map[string]any{}
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode claims: %w", err)
	}
	return s.store.Set(ctx, s.keyer.ClaimsKey(userID), string(encoded), 0)
}

// PremiumFromClaims extracts the premium flag and expiry (epoch ms) from an
// attribute map, tolerating the numeric type wobble JSON decoding introduces.
func PremiumFromClaims(attrs map[string]any) (bool, *int64) {
	if attrs == nil {
		return false, nil
	}
	premium, _ := attrs[AttrPremium].(bool)
	var exp *int64
	switch v := attrs[AttrPremiumExp].(type) {
	case float64:
		ms := int64(v)
		exp = &ms
	case int64:
		ms := v
		exp = &ms
	}
	return premium, exp
}
