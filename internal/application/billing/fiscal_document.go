package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/LuisDaniel15/Software-Pos/internal/domain/entity"
	pkgdian "github.com/LuisDaniel15/Software-Pos/pkg/dian"
)

// DocumentKind tipo de documento enviado al proveedor.
type DocumentKind string

const (
	KindInvoice    DocumentKind = "invoice"
	KindCreditNote DocumentKind = "credit_note"
)

// Concepto de corrección para anulación total de la factura.
const correctionConceptAnnulment = 2

// FiscalDocument documento listo para validación fiscal. ReferenceCode se reenvía idéntico en cada
// reintento para que el proveedor pueda deduplicar.
type FiscalDocument struct {
	Kind              DocumentKind
	ReferenceCode     string
	GatewayRangeID    int64
	Number            string
	Observation       string
	PaymentForm       int
	PaymentMethodCode string
	PaymentDueDate    *time.Time
	Customer          FiscalParty
	Establishment     FiscalEstablishment
	Items             []FiscalItem
	AllowanceCharges  []FiscalAllowanceCharge

	// Solo notas crédito.
	BillID                int64
	BillNumber            string
	CorrectionConceptCode int
}

// FiscalParty datos del comprador.
type FiscalParty struct {
	IdentificationDocumentID int
	Identification           string
	DV                       string
	Company                  string
	TradeName                string
	Names                    string
	Address                  string
	Email                    string
	Phone                    string
	LegalOrganizationID      int
	TributeID                int
	MunicipalityID           int
}

// FiscalEstablishment datos de la sucursal emisora.
type FiscalEstablishment struct {
	Name           string
	Address        string
	Phone          string
	Email          string
	MunicipalityID int
}

// FiscalItem línea del documento.
type FiscalItem struct {
	CodeReference  string
	Name           string
	Note           string
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	TaxRate        decimal.Decimal
	DiscountRate   decimal.Decimal
	UnitMeasureID  int
	StandardCodeID int
	TributeID      int
	IsExcluded     bool
	Withholdings   []FiscalWithholding
}

// FiscalWithholding retención de una línea.
type FiscalWithholding struct {
	Code string
	Rate decimal.Decimal
}

// FiscalAllowanceCharge descuento o recargo de documento.
type FiscalAllowanceCharge struct {
	ConceptType string
	IsSurcharge bool
	Reason      string
	BaseAmount  decimal.Decimal
	Amount      decimal.Decimal
}

// GatewayResponse respuesta del proveedor, incluidos los cuerpos crudos para la bitácora.
type GatewayResponse struct {
	Accepted   bool
	BillID     int64
	Number     string
	CUFE       string
	QRURL      string
	Errors     []string
	HTTPStatus int
	Request    []byte
	Response   []byte
}

// buildInvoiceDocument arma el documento fiscal de la venta.
func buildInvoiceDocument(sale *entity.Sale, customer *entity.Customer, branch *entity.Branch) *FiscalDocument {
	doc := &FiscalDocument{
		Kind:              KindInvoice,
		ReferenceCode:     sale.ReferenceCode,
		GatewayRangeID:    sale.GatewayRangeID,
		Number:            sale.FullNumber(),
		Observation:       sale.Observation,
		PaymentForm:       sale.PaymentForm,
		PaymentMethodCode: sale.PaymentMethodCode,
		PaymentDueDate:    sale.DueDate,
		Customer:          partyFromCustomer(customer),
		Establishment:     establishmentFromBranch(branch),
		Items:             itemsFromLines(sale.Lines),
	}
	for _, a := range sale.Adjustments {
		doc.AllowanceCharges = append(doc.AllowanceCharges, FiscalAllowanceCharge{
			ConceptType: a.ConceptCode,
			IsSurcharge: a.IsSurcharge,
			Reason:      a.Reason,
			BaseAmount:  a.BaseAmount,
			Amount:      a.Amount,
		})
	}
	return doc
}

// buildCreditNoteDocument arma la nota crédito que anula la venta completa.
func buildCreditNoteDocument(note *entity.CreditNote, sale *entity.Sale, customer *entity.Customer, branch *entity.Branch) *FiscalDocument {
	return &FiscalDocument{
		Kind:                  KindCreditNote,
		ReferenceCode:         note.ReferenceCode,
		GatewayRangeID:        note.GatewayRangeID,
		Number:                note.FullNumber(),
		Observation:           note.Reason,
		PaymentForm:           sale.PaymentForm,
		PaymentMethodCode:     sale.PaymentMethodCode,
		Customer:              partyFromCustomer(customer),
		Establishment:         establishmentFromBranch(branch),
		Items:                 itemsFromLines(sale.Lines),
		BillID:                sale.GatewayBillID,
		BillNumber:            sale.GatewayNumber,
		CorrectionConceptCode: correctionConceptAnnulment,
	}
}

func partyFromCustomer(c *entity.Customer) FiscalParty {
	dv := c.DV
	if dv == "" && c.IsLegalEntity() {
		if computed, err := pkgdian.VerificationDigit(c.Identification); err == nil {
			dv = computed
		}
	}
	return FiscalParty{
		IdentificationDocumentID: c.IdentificationDocumentID,
		Identification:           c.Identification,
		DV:                       dv,
		Company:                  c.Company,
		TradeName:                c.TradeName,
		Names:                    c.Names,
		Address:                  c.Address,
		Email:                    c.Email,
		Phone:                    c.Phone,
		LegalOrganizationID:      c.LegalOrganizationID,
		TributeID:                c.TributeID,
		MunicipalityID:           c.MunicipalityID,
	}
}

func establishmentFromBranch(b *entity.Branch) FiscalEstablishment {
	return FiscalEstablishment{
		Name:           b.Name,
		Address:        b.Address,
		Phone:          b.Phone,
		Email:          b.Email,
		MunicipalityID: b.MunicipalityID,
	}
}

func itemsFromLines(lines []entity.SaleLine) []FiscalItem {
	items := make([]FiscalItem, 0, len(lines))
	for _, l := range lines {
		item := FiscalItem{
			CodeReference:  l.Code,
			Name:           l.Name,
			Note:           l.Note,
			Quantity:       l.Quantity,
			Price:          l.UnitPrice,
			TaxRate:        l.TaxRate,
			DiscountRate:   l.DiscountRate,
			UnitMeasureID:  l.UnitMeasureID,
			StandardCodeID: l.StandardCodeID,
			TributeID:      l.TributeID,
			IsExcluded:     l.IsExcluded,
		}
		for _, w := range l.Withholdings {
			item.Withholdings = append(item.Withholdings, FiscalWithholding{Code: w.Code, Rate: w.Rate})
		}
		items = append(items, item)
	}
	return items
}
