package entity

import "time"

// Branch sucursal o establecimiento donde se vende y se guarda inventario.
type Branch struct {
	ID             string
	Name           string
	Address        string
	Phone          string
	Email          string
	MunicipalityID int
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
