package repository

import (
	"context"

	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
)

// UserRepository puerto de persistencia de usuarios.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	// GetByEmail devuelve domain.ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}
