package entity

import "time"

// User persona que opera el punto de venta. Cada usuario pertenece a una sucursal y tiene un rol.
type User struct {
	ID           string
	BranchID     string
	Email        string
	PasswordHash string
	Name         string
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
