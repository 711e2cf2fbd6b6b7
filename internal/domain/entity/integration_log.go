package entity

import "time"

// Operaciones registradas contra el proveedor de facturación.
const (
	IntegrationOpSubmitInvoice    = "SUBMIT_INVOICE"
	IntegrationOpRetryInvoice     = "RETRY_INVOICE"
	IntegrationOpSubmitCreditNote = "SUBMIT_CREDIT_NOTE"
)

// IntegrationLog traza de un intercambio con el proveedor de facturación.
type IntegrationLog struct {
	ID           string
	Operation    string
	SaleID       *string
	CreditNoteID *string
	UserID       string
	Request      []byte
	Response     []byte
	HTTPStatus   int
	Success      bool
	ErrorMessage string
	CreatedAt    time.Time
}
