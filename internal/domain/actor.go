package domain

// Actor identifica al usuario que ejecuta una operación y la sucursal desde donde opera.
// Se recibe como parámetro explícito en cada caso de uso en lugar de leerse de una sesión global.
type Actor struct {
	UserID   string
	BranchID string
}
