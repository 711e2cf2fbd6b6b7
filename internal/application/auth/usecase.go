package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/LuisDaniel15/Software-Pos/internal/application/dto"
	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	"github.com/LuisDaniel15/Software-Pos/internal/domain/repository"
	"github.com/LuisDaniel15/Software-Pos/pkg/jwt"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

// AuthUseCase casos de uso de autenticación: alta de usuarios y login.
type AuthUseCase struct {
	userRepo   repository.UserRepository
	branchRepo repository.BranchRepository
	tokens     *jwt.Signer
	cost       int
	log        *logger.Logger
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(userRepo repository.UserRepository, branchRepo repository.BranchRepository, tokens *jwt.Signer, log *logger.Logger) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, branchRepo: branchRepo, tokens: tokens, cost: bcrypt.DefaultCost, log: log.With("auth")}
}

// WithHashCost cambia el costo de bcrypt (las pruebas usan bcrypt.MinCost).
func (uc *AuthUseCase) WithHashCost(cost int) *AuthUseCase {
	uc.cost = cost
	return uc
}

// RegisterUser crea un usuario en una sucursal activa. El email es único; un duplicado
// devuelve domain.ErrConflict.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, at time.Time, in dto.RegisterUserRequest) (*dto.UserResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	branch, err := uc.branchRepo.GetByID(ctx, in.BranchID)
	if err != nil {
		return nil, err
	}
	if !branch.Active {
		return nil, fmt.Errorf("sucursal %s: %w", branch.ID, domain.ErrInactive)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	email := strings.ToLower(in.Email)
	name := in.Name
	if name == "" {
		name = email
	}
	user := &entity.User{
		ID:           uuid.New().String(),
		BranchID:     in.BranchID,
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         in.Role,
		Active:       true,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	uc.log.Info().Str("user_id", user.ID).Str("branch_id", user.BranchID).Str("role", user.Role).Msg("usuario registrado")
	out := toUserResponse(user)
	return &out, nil
}

// Login verifica email/password y emite un JWT con usuario, sucursal y rol.
// Email desconocido, contraseña errada y usuario inactivo responden igual: domain.ErrUnauthorized.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	user, err := uc.userRepo.GetByEmail(ctx, strings.ToLower(in.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if !user.Active {
		uc.log.Warn().Str("user_id", user.ID).Msg("login de usuario inactivo")
		return nil, domain.ErrUnauthorized
	}
	token, err := uc.tokens.Sign(jwt.Operator{UserID: user.ID, BranchID: user.BranchID, Role: user.Role})
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User:  toUserResponse(user),
	}, nil
}

func toUserResponse(u *entity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		BranchID:  u.BranchID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}
