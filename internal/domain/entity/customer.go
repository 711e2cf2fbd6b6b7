package entity

import "time"

// Customer comprador de la venta con los datos que exige la factura electrónica.
type Customer struct {
	ID                       string
	IdentificationDocumentID int    // tipo de documento (3 = cédula, 6 = NIT)
	Identification           string // número sin dígito de verificación
	DV                       string // dígito de verificación; vacío si no aplica
	Company                  string
	TradeName                string
	Names                    string
	Address                  string
	Email                    string
	Phone                    string
	LegalOrganizationID      int
	TributeID                int
	MunicipalityID           int
	Active                   bool
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// IsLegalEntity persona jurídica (identificada con NIT).
func (c Customer) IsLegalEntity() bool {
	return c.IdentificationDocumentID == 6
}
