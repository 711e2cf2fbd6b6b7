package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/LuisDaniel15/Software-Pos/internal/application/auth"
	"github.com/LuisDaniel15/Software-Pos/internal/application/dto"
	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

// AuthHandler login y alta de usuarios.
type AuthHandler struct {
	uc  *auth.AuthUseCase
	now func() time.Time
	log *logger.Logger
}

// NewAuthHandler construye el handler. now nil usa time.Now.
func NewAuthHandler(uc *auth.AuthUseCase, now func() time.Time, log *logger.Logger) *AuthHandler {
	if now == nil {
		now = time.Now
	}
	return &AuthHandler{uc: uc, now: now, log: log.With("http-auth")}
}

// Login godoc
// @Summary      Iniciar sesión
// @Description  Devuelve un Bearer token con usuario, sucursal y rol.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.LoginResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.uc.Login(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(res)
}

// Register godoc
// @Summary      Registrar usuario del punto de venta
// @Tags         auth
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RegisterUserRequest  true  "branch_id, email, password, role"
// @Success      201   {object}  dto.UserResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/users [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterUserRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	user, err := h.uc.RegisterUser(c.UserContext(), h.now(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}
