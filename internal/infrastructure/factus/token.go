package factus

import (
	"context"
	"sync"
	"time"
)

// tokenRefreshMargin el token se renueva cuando le quedan menos de 5 minutos.
const tokenRefreshMargin = 5 * time.Minute

// Token access token OAuth del proveedor con su vencimiento.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// usable el token sigue vigente con margen suficiente.
func (t Token) usable(now time.Time) bool {
	return t.AccessToken != "" && t.ExpiresAt.Sub(now) > tokenRefreshMargin
}

// TokenStore caché del token compartida entre llamadas (y entre instancias si es Redis).
type TokenStore interface {
	Get(ctx context.Context) (Token, bool, error)
	Put(ctx context.Context, tok Token) error
	Invalidate(ctx context.Context) error
}

// MemoryTokenStore caché en proceso; suficiente con una sola instancia.
type MemoryTokenStore struct {
	mu  sync.Mutex
	tok *Token
}

// NewMemoryTokenStore construye la caché vacía.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Get(_ context.Context) (Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok == nil {
		return Token{}, false, nil
	}
	return *s.tok, true, nil
}

func (s *MemoryTokenStore) Put(_ context.Context, tok Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = &tok
	return nil
}

func (s *MemoryTokenStore) Invalidate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = nil
	return nil
}
