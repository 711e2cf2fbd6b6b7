package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/LuisDaniel15/Software-Pos/internal/application/auth"
	"github.com/LuisDaniel15/Software-Pos/internal/application/dto"
	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/testutil/memstore"
	"github.com/LuisDaniel15/Software-Pos/pkg/jwt"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

func signer(t *testing.T) *jwt.Signer {
	t.Helper()
	s, err := jwt.NewSigner("test-secret", "software-pos-test", time.Hour)
	require.NoError(t, err)
	return s
}

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newAuth(t *testing.T) (*auth.AuthUseCase, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	st.PutBranch(entity.Branch{ID: "b-1", Name: "Principal", Active: true})
	st.PutBranch(entity.Branch{ID: "b-9", Name: "Cerrada", Active: false})
	uc := auth.NewAuthUseCase(st.Users(), st.Branches(), signer(t), logger.Nop()).
		WithHashCost(bcrypt.MinCost)
	return uc, st
}

func TestLogin_TokenLlevaSucursalYRol(t *testing.T) {
	uc, _ := newAuth(t)
	ctx := context.Background()

	user, err := uc.RegisterUser(ctx, t0, dto.RegisterUserRequest{
		BranchID: "b-1", Email: "Caja1@Tienda.co", Password: "secreta123", Role: "cajero",
	})
	require.NoError(t, err)
	assert.Equal(t, "caja1@tienda.co", user.Email, "el email se normaliza")
	assert.Equal(t, "caja1@tienda.co", user.Name, "sin nombre se usa el email")

	res, err := uc.Login(ctx, dto.LoginRequest{Email: "caja1@tienda.co", Password: "secreta123"})
	require.NoError(t, err)
	op, err := signer(t).Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, jwt.Operator{UserID: user.ID, BranchID: "b-1", Role: "cajero"}, op)
}

func TestLogin_CredencialesInvalidas(t *testing.T) {
	uc, st := newAuth(t)
	ctx := context.Background()
	_, err := uc.RegisterUser(ctx, t0, dto.RegisterUserRequest{
		BranchID: "b-1", Email: "bodega@tienda.co", Password: "secreta123", Role: "bodeguero",
	})
	require.NoError(t, err)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "bodega@tienda.co", Password: "otra-clave"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "nadie@tienda.co", Password: "secreta123"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	hash, err := bcrypt.GenerateFromPassword([]byte("secreta123"), bcrypt.MinCost)
	require.NoError(t, err)
	st.PutUser(entity.User{ID: "u-x", BranchID: "b-1", Email: "retirado@tienda.co", PasswordHash: string(hash), Role: "cajero"})
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "retirado@tienda.co", Password: "secreta123"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "usuario inactivo")
}

func TestRegisterUser_Validaciones(t *testing.T) {
	uc, _ := newAuth(t)
	ctx := context.Background()
	ok := dto.RegisterUserRequest{BranchID: "b-1", Email: "admin@tienda.co", Password: "secreta123", Role: "admin"}

	_, err := uc.RegisterUser(ctx, t0, ok)
	require.NoError(t, err)

	_, err = uc.RegisterUser(ctx, t0, ok)
	assert.ErrorIs(t, err, domain.ErrConflict, "email repetido")

	bad := ok
	bad.Email, bad.Role = "otro@tienda.co", "vendedor"
	_, err = uc.RegisterUser(ctx, t0, bad)
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)

	closed := ok
	closed.Email, closed.BranchID = "norte@tienda.co", "b-9"
	_, err = uc.RegisterUser(ctx, t0, closed)
	assert.ErrorIs(t, err, domain.ErrInactive)

	missing := ok
	missing.Email, missing.BranchID = "sur@tienda.co", "b-404"
	_, err = uc.RegisterUser(ctx, t0, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
