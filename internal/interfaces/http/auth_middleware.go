package http

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/LuisDaniel15/Software-Pos/internal/application/dto"
	"github.com/LuisDaniel15/Software-Pos/internal/domain"
	"github.com/LuisDaniel15/Software-Pos/pkg/jwt"
)

// Locals keys para UserID, BranchID y Role en Fiber.
const (
	LocalUserID   = "user_id"
	LocalBranchID = "branch_id"
	LocalRole     = "role"
)

// Roles del punto de venta.
const (
	RoleAdmin     = "admin"
	RoleCashier   = "cajero"
	RoleWarehouse = "bodeguero"
)

// AuthMiddleware exige "Authorization: Bearer <token>", verifica el token y deja el
// operador en c.Locals.
func AuthMiddleware(tokens *jwt.Signer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, code, msg := bearerToken(c.Get(fiber.HeaderAuthorization))
		if code != "" {
			return deny(c, fiber.StatusUnauthorized, code, msg)
		}
		op, err := tokens.Verify(raw)
		if err != nil {
			return deny(c, fiber.StatusUnauthorized, "INVALID_TOKEN", "token inválido o expirado")
		}
		c.Locals(LocalUserID, op.UserID)
		c.Locals(LocalBranchID, op.BranchID)
		c.Locals(LocalRole, op.Role)
		return c.Next()
	}
}

// bearerToken extrae el token del encabezado. Si falta algo devuelve el código y mensaje del rechazo.
func bearerToken(header string) (token, code, msg string) {
	if header == "" {
		return "", "MISSING_TOKEN", "Authorization header requerido"
	}
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "INVALID_TOKEN", "formato: Bearer <token>"
	}
	if token = strings.TrimSpace(rest); token == "" {
		return "", "MISSING_TOKEN", "token vacío"
	}
	return token, "", ""
}

// RequireRole va después de AuthMiddleware. Sin rol en el token responde 401 MISSING_ROLE;
// con un rol fuera de la lista, 403 FORBIDDEN.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch role := GetRole(c); {
		case role == "":
			return deny(c, fiber.StatusUnauthorized, "MISSING_ROLE", "el token no incluye rol")
		case !slices.Contains(roles, role):
			return deny(c, fiber.StatusForbidden, "FORBIDDEN", "rol sin permiso para esta operación")
		}
		return c.Next()
	}
}

// RequireBranch rechaza tokens sin usuario o sin sucursal: caja e inventario siempre
// operan sobre la sucursal del actor.
func RequireBranch() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetUserID(c) == "" || GetBranchID(c) == "" {
			return deny(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "user_id o branch_id no encontrado en el token")
		}
		return c.Next()
	}
}

func deny(c *fiber.Ctx, status int, code, msg string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string {
	return local(c, LocalUserID)
}

// GetBranchID devuelve la sucursal del contexto (después del middleware de auth).
func GetBranchID(c *fiber.Ctx) string {
	return local(c, LocalBranchID)
}

// GetRole devuelve el rol del contexto.
func GetRole(c *fiber.Ctx) string {
	return local(c, LocalRole)
}

// actorFrom arma el actor explícito que reciben los casos de uso.
func actorFrom(c *fiber.Ctx) domain.Actor {
	return domain.Actor{UserID: GetUserID(c), BranchID: GetBranchID(c)}
}

func local(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
