package repository

import (
	"context"

	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
)

// ProductRepository lectura del catálogo de productos.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}

// CustomerRepository lectura de compradores.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
}

// BranchRepository lectura de sucursales.
type BranchRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Branch, error)
}
