package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/LuisDaniel15/Software-Pos/internal/infrastructure/factus"
)

var _ factus.TokenStore = (*TokenStore)(nil)

const factusTokenKey = "factus:access_token"

// TokenStore comparte el token OAuth de Factus entre instancias. La clave expira junto con el token.
type TokenStore struct {
	rdb *goredis.Client
}

// NewTokenStore construye la caché sobre un cliente ya conectado.
func NewTokenStore(rdb *goredis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

func (s *TokenStore) Get(ctx context.Context) (factus.Token, bool, error) {
	raw, err := s.rdb.Get(ctx, factusTokenKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return factus.Token{}, false, nil
		}
		return factus.Token{}, false, fmt.Errorf("redis get token: %w", err)
	}
	var tok factus.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return factus.Token{}, false, fmt.Errorf("decode token: %w", err)
	}
	return tok, true, nil
}

func (s *TokenStore) Put(ctx context.Context, tok factus.Token) error {
	ttl := time.Until(tok.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := s.rdb.Set(ctx, factusTokenKey, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

func (s *TokenStore) Invalidate(ctx context.Context) error {
	if err := s.rdb.Del(ctx, factusTokenKey).Err(); err != nil {
		return fmt.Errorf("redis del token: %w", err)
	}
	return nil
}
